package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/geometry"
	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
	"github.com/FengZhongShaoNian/sticky/internal/runtimepath"
	"github.com/FengZhongShaoNian/sticky/internal/windows"
)

// ErrNotRunning is returned when no instance is listening on the socket.
var ErrNotRunning = errors.New("no running instance")

// Client handles IPC communication with the running instance
type Client struct {
	socketPath     string
	timeout        time.Duration
	payloadTimeout time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

const (
	// DefaultTimeout bounds connecting and every request that carries no image.
	DefaultTimeout = 5 * time.Second
	// DefaultPayloadTimeout bounds requests that send or return a whole image.
	// The instance decodes and encodes them before it answers.
	DefaultPayloadTimeout = 2 * time.Minute
)

// NewClientAt creates a client for the socket at socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath:     socketPath,
		timeout:        DefaultTimeout,
		payloadTimeout: DefaultPayloadTimeout,
	}
}

// WithTimeout returns a copy of c using timeout for connecting and for
// requests without an image.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	cp := *c
	cp.timeout = timeout
	return &cp
}

// WithPayloadTimeout returns a copy of c using timeout for OPEN, READ_IMAGE,
// WRITE_IMAGE and COPY_IMAGE.
func (c *Client) WithPayloadTimeout(timeout time.Duration) *Client {
	cp := *c
	cp.payloadTimeout = timeout
	return &cp
}

func (c *Client) timeoutFor(command CommandType) time.Duration {
	switch command {
	case CommandOpen, CommandReadImage, CommandWriteImage, CommandCopyImage:
		return c.payloadTimeout
	}
	return c.timeout
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(command CommandType, payload any) (*Response, error) {
	req := &Request{Command: command}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = data
	}

	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeoutFor(command)))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.Status == StatusError {
		return nil, fmt.Errorf("sticky error: %s", resp.Error)
	}

	return &resp, nil
}

func (c *Client) call(command CommandType, payload any, out any) error {
	resp, err := c.sendRequest(command, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if len(resp.Data) == 0 {
		return fmt.Errorf("empty %s response", command)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", command, err)
	}
	return nil
}

// Open forwards a command line to the running instance.
func (c *Client) Open(args []string, cwd string) (*OpenData, error) {
	var data OpenData
	if err := c.call(CommandOpen, OpenPayload{Args: args, Cwd: cwd}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// ReadImage asks the running instance to decode path.
func (c *Client) ReadImage(path string) (*ReadImageData, error) {
	var data ReadImageData
	if err := c.call(CommandReadImage, ReadImagePayload{Path: path}, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// WriteImage asks the running instance to write payload to path.
func (c *Client) WriteImage(path string, payload imagecodec.Payload) error {
	return c.call(CommandWriteImage, WriteImagePayload{Path: path, Payload: string(payload)}, nil)
}

// CopyImage puts payload on the clipboard via the running instance.
func (c *Client) CopyImage(payload imagecodec.Payload) error {
	return c.call(CommandCopyImage, CopyImagePayload{Payload: string(payload)}, nil)
}

// ListWindows returns the open image windows.
func (c *Client) ListWindows() ([]windows.Info, error) {
	var data WindowsData
	if err := c.call(CommandListWindows, nil, &data); err != nil {
		return nil, err
	}
	return data.Windows, nil
}

// CloseWindow closes the window with the given identity.
func (c *Client) CloseWindow(id windows.Identity) error {
	return c.call(CommandCloseWindow, CloseWindowPayload{Identity: string(id)}, nil)
}

// SetFixedSize pins a window to the given logical size.
func (c *Client) SetFixedSize(id windows.Identity, size geometry.Size) error {
	return c.call(CommandSetFixedSize, SetFixedSizePayload{
		Identity: string(id),
		Width:    size.Width,
		Height:   size.Height,
	}, nil)
}

// Emit delivers a front-end message to the running instance.
func (c *Client) Emit(msg events.Message) error {
	raw, err := events.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.call(CommandEmit, EmitPayload{Message: raw}, nil)
}

// GetStatus retrieves the running instance's status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Quit asks the running instance to close every window and exit.
func (c *Client) Quit() error {
	return c.call(CommandQuit, nil, nil)
}

// Ping checks if an instance is running and responsive
func (c *Client) Ping() bool {
	_, err := c.WithTimeout(time.Second).GetStatus()
	return err == nil
}
