package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
	"github.com/FengZhongShaoNian/sticky/internal/windows"
)

func (s *Server) handleOpenImage(_ context.Context, _ *mcpsdk.CallToolRequest, args OpenImageInput) (*mcpsdk.CallToolResult, OpenImageOutput, error) {
	cwd := args.Cwd
	if cwd == "" {
		cwd = s.cwd
	}
	var argv []string
	if path := strings.TrimSpace(args.Path); path != "" {
		argv = []string{"--path", path}
	}

	data, err := s.instance.Open(argv, cwd)
	if err != nil {
		return nil, OpenImageOutput{}, fmt.Errorf("failed to open image: %w", err)
	}
	s.logger.Info("open_image", "path", args.Path, "identity", data.Identity, "origin", data.Origin)

	return nil, OpenImageOutput{
		Identity: data.Identity,
		Origin:   data.Origin,
		Path:     data.Path,
		Opened:   data.Identity != "",
	}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ ListWindowsInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	list, err := s.instance.ListWindows()
	if err != nil {
		return nil, ListWindowsOutput{}, fmt.Errorf("failed to list windows: %w", err)
	}
	summaries := make([]WindowSummary, 0, len(list))
	for _, info := range list {
		summaries = append(summaries, summarize(info))
	}
	return nil, ListWindowsOutput{Windows: summaries, Count: len(summaries)}, nil
}

func summarize(info windows.Info) WindowSummary {
	return WindowSummary{
		Identity:       string(info.Identity),
		Path:           info.Path,
		MIMEType:       info.MIMEType,
		PhysicalWidth:  info.Physical.Width,
		PhysicalHeight: info.Physical.Height,
		LogicalWidth:   info.Logical.Width,
		LogicalHeight:  info.Logical.Height,
		ScaleFactor:    info.ScaleFactor,
		Delivery:       info.Delivery,
		OpenedAt:       info.OpenedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleCloseWindow(_ context.Context, _ *mcpsdk.CallToolRequest, args CloseWindowInput) (*mcpsdk.CallToolResult, CloseWindowOutput, error) {
	id, err := windows.ParseIdentity(strings.TrimSpace(args.Identity))
	if err != nil {
		return nil, CloseWindowOutput{}, err
	}
	if err := s.instance.CloseWindow(id); err != nil {
		return nil, CloseWindowOutput{}, fmt.Errorf("failed to close %s: %w", id, err)
	}
	s.logger.Info("close_window", "identity", id)
	return nil, CloseWindowOutput{Closed: string(id)}, nil
}

func (s *Server) handleReadImage(_ context.Context, _ *mcpsdk.CallToolRequest, args ReadImageInput) (*mcpsdk.CallToolResult, ReadImageOutput, error) {
	if strings.TrimSpace(args.Path) == "" {
		return nil, ReadImageOutput{}, fmt.Errorf("path is required")
	}

	data, err := s.instance.ReadImage(args.Path)
	if err != nil {
		return nil, ReadImageOutput{}, fmt.Errorf("failed to read image: %w", err)
	}
	raw, err := imagecodec.DecodeTransport(imagecodec.Payload(data.Payload))
	if err != nil {
		return nil, ReadImageOutput{}, fmt.Errorf("failed to read image: %w", err)
	}

	out := ReadImageOutput{MIMEType: data.MIMEType, Width: data.Width, Height: data.Height}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.ImageContent{Data: raw, MIMEType: data.MIMEType},
			&mcpsdk.TextContent{Text: fmt.Sprintf("%s, %dx%d", data.MIMEType, data.Width, data.Height)},
		},
	}, out, nil
}
