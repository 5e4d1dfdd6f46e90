package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
	"github.com/FengZhongShaoNian/sticky/internal/runtimepath"
	"github.com/FengZhongShaoNian/sticky/internal/windows"
)

// maxRequestBytes bounds one request line. Payloads carry whole images.
const maxRequestBytes = 256 << 20

// requestReadTimeout bounds how long a client may take to send its request
// line.
const requestReadTimeout = time.Minute

// ErrAlreadyRunning is returned by Start when another instance owns the socket.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Handler executes commands on behalf of the server.
type Handler interface {
	Open(OpenPayload) (*OpenData, error)
	ReadImage(path string) (*imagecodec.Image, error)
	WriteImage(path string, payload imagecodec.Payload) error
	CopyImage(payload imagecodec.Payload) error
	ListWindows() []windows.Info
	CloseWindow(id windows.Identity) error
	SetFixedSize(SetFixedSizePayload) error
	Emit(events.Message) error
	Status() StatusData
	Quit()
}

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	handler      Handler
	logger       *slog.Logger
	wg           sync.WaitGroup
	shuttingDown bool
	shutdownMu   sync.Mutex
	readTimeout  time.Duration
}

// NewServer creates a server on the default socket path.
func NewServer(handler Handler, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, handler, logger), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, handler Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		socketPath:  socketPath,
		handler:     handler,
		logger:      logger,
		readTimeout: requestReadTimeout,
	}
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for IPC connections. A live socket owned by another
// process yields ErrAlreadyRunning; a stale one is removed.
func (s *Server) Start() error {
	if conn, err := net.Dial("unix", s.socketPath); err == nil {
		conn.Close()
		return ErrAlreadyRunning
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			stopping := s.shuttingDown
			s.shutdownMu.Unlock()
			if stopping || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	reader := bufio.NewReader(io.LimitReader(conn, maxRequestBytes))
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}
	conn.SetReadDeadline(time.Time{})

	req, err := ParseRequest(data)
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)))
		return
	}

	resp := s.dispatch(req)
	s.writeResponse(conn, resp)

	if req.Command == CommandQuit && resp.Status == StatusOK {
		s.handler.Quit()
	}
}

// dispatch runs the handler for req, turning handler panics into errors.
func (s *Server) dispatch(req *Request) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("IPC handler panicked", "command", req.Command, "panic", r)
			resp = NewErrorResponse(fmt.Sprintf("internal error handling %s", req.Command))
		}
	}()
	return s.handleCommand(req)
}

func (s *Server) handleCommand(req *Request) *Response {
	s.logger.Debug("IPC request", "command", req.Command)

	switch req.Command {
	case CommandOpen:
		var p OpenPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		data, err := s.handler.Open(p)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		return okResponse(data)

	case CommandReadImage:
		var p ReadImagePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		if p.Path == "" {
			return NewErrorResponse("path is required")
		}
		img, err := s.handler.ReadImage(p.Path)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		return okResponse(ReadImageData{
			Payload:  string(imagecodec.EncodeTransport(img)),
			MIMEType: img.MIMEType,
			Width:    img.Dimensions.Width,
			Height:   img.Dimensions.Height,
		})

	case CommandWriteImage:
		var p WriteImagePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		if p.Path == "" {
			return NewErrorResponse("path is required")
		}
		if err := s.handler.WriteImage(p.Path, imagecodec.Payload(p.Payload)); err != nil {
			return NewErrorResponse(err.Error())
		}
		return okResponse(nil)

	case CommandCopyImage:
		var p CopyImagePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		if err := s.handler.CopyImage(imagecodec.Payload(p.Payload)); err != nil {
			return NewErrorResponse(err.Error())
		}
		return okResponse(nil)

	case CommandListWindows:
		list := s.handler.ListWindows()
		if list == nil {
			list = []windows.Info{}
		}
		return okResponse(WindowsData{Windows: list})

	case CommandCloseWindow:
		var p CloseWindowPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		id, err := windows.ParseIdentity(p.Identity)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		if err := s.handler.CloseWindow(id); err != nil {
			return NewErrorResponse(err.Error())
		}
		return okResponse(nil)

	case CommandSetFixedSize:
		var p SetFixedSizePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		if err := s.handler.SetFixedSize(p); err != nil {
			return NewErrorResponse(err.Error())
		}
		return okResponse(nil)

	case CommandEmit:
		var p EmitPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return err
		}
		msg, err := events.Parse(p.Message)
		if err != nil {
			return NewErrorResponse(err.Error())
		}
		if err := s.handler.Emit(msg); err != nil {
			return NewErrorResponse(err.Error())
		}
		return okResponse(nil)

	case CommandGetStatus:
		return okResponse(s.handler.Status())

	case CommandQuit:
		s.logger.Info("IPC: received QUIT")
		return okResponse(nil)

	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func decodePayload(raw json.RawMessage, out any) *Response {
	if len(raw) == 0 {
		return NewErrorResponse("missing payload")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid payload: %v", err))
	}
	return nil
}

func okResponse(data any) *Response {
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) {
	data, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
		s.wg.Wait()
	}
	os.Remove(s.socketPath)
}
