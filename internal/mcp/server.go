// Package mcp exposes the running instance to MCP clients over stdio.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/FengZhongShaoNian/sticky/internal/ipc"
	"github.com/FengZhongShaoNian/sticky/internal/windows"
)

const ServerName = "sticky"

// Instance is the running sticky process, reached over IPC.
type Instance interface {
	Open(args []string, cwd string) (*ipc.OpenData, error)
	ListWindows() ([]windows.Info, error)
	CloseWindow(id windows.Identity) error
	ReadImage(path string) (*ipc.ReadImageData, error)
}

var _ Instance = (*ipc.Client)(nil)

// Server is the MCP server for pinning images.
type Server struct {
	mcpServer *mcpsdk.Server
	instance  Instance
	logger    *slog.Logger
	cwd       string
}

// NewServer creates an MCP server that forwards tool calls to instance.
// cwd is the default base for relative paths.
func NewServer(instance Instance, version, cwd string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		instance: instance,
		logger:   logger,
		cwd:      cwd,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("MCP server starting on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "open_image",
		Description: "Pin an image in a borderless always-on-top window sized to the image. Without a path, the image currently on the clipboard is pinned. A missing or unreadable file also falls back to the clipboard; the returned origin says which source was used.",
	}, s.handleOpenImage)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List the pinned image windows with their identity, source path, size in physical and logical pixels, scale factor and delivery state.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_window",
		Description: "Close a pinned image window by identity.",
	}, s.handleCloseWindow)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "read_image",
		Description: "Read an image file through the running instance and return it as image content along with its MIME type and pixel dimensions.",
	}, s.handleReadImage)
}
