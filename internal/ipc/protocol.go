package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/FengZhongShaoNian/sticky/internal/windows"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandOpen         CommandType = "OPEN"
	CommandReadImage    CommandType = "READ_IMAGE"
	CommandWriteImage   CommandType = "WRITE_IMAGE"
	CommandCopyImage    CommandType = "COPY_IMAGE"
	CommandListWindows  CommandType = "LIST_WINDOWS"
	CommandCloseWindow  CommandType = "CLOSE_WINDOW"
	CommandSetFixedSize CommandType = "SET_FIXED_SIZE"
	CommandEmit         CommandType = "EMIT"
	CommandGetStatus    CommandType = "GET_STATUS"
	CommandQuit         CommandType = "QUIT"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// OpenPayload is a forwarded invocation: the second process's arguments
// (without the program name) and working directory.
type OpenPayload struct {
	Args []string `json:"args"`
	Cwd  string   `json:"cwd"`
}

// OpenData reports what a forwarded invocation produced. Identity is empty
// when no image was available.
type OpenData struct {
	Identity string `json:"identity,omitempty"`
	Origin   string `json:"origin"`
	Path     string `json:"path,omitempty"`
}

type ReadImagePayload struct {
	Path string `json:"path"`
}

type ReadImageData struct {
	Payload  string `json:"payload"`
	MIMEType string `json:"mime_type"`
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
}

type WriteImagePayload struct {
	Path    string `json:"path"`
	Payload string `json:"payload"`
}

type CopyImagePayload struct {
	Payload string `json:"payload"`
}

type CloseWindowPayload struct {
	Identity string `json:"identity"`
}

type SetFixedSizePayload struct {
	Identity string  `json:"identity"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// EmitPayload carries a front-end message envelope.
type EmitPayload struct {
	Message json.RawMessage `json:"message"`
}

type WindowsData struct {
	Windows []windows.Info `json:"windows"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	PID               int    `json:"pid"`
	Version           string `json:"version"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
	OpenWindows       int    `json:"open_windows"`
	PendingDeliveries int    `json:"pending_deliveries"`
	ScaleOverride     string `json:"scale_override,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: StatusOK,
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: StatusError,
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, fmt.Errorf("failed to parse request: missing command")
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
