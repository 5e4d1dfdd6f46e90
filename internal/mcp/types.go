package mcp

// OpenImageInput is the input for the open_image tool.
type OpenImageInput struct {
	Path string `json:"path,omitempty" jsonschema:"Path of the image to pin. Relative paths are resolved against cwd. Omit to pin the clipboard image."`
	Cwd  string `json:"cwd,omitempty" jsonschema:"Directory relative paths are resolved against (default: the MCP server's working directory)"`
}

// OpenImageOutput is the output for the open_image tool.
type OpenImageOutput struct {
	Identity string `json:"identity,omitempty"`
	Origin   string `json:"origin"`
	Path     string `json:"path,omitempty"`
	Opened   bool   `json:"opened"`
}

// ListWindowsInput is the input for the list_windows tool.
type ListWindowsInput struct{}

// WindowSummary describes one pinned window.
type WindowSummary struct {
	Identity       string  `json:"identity"`
	Path           string  `json:"path,omitempty"`
	MIMEType       string  `json:"mime_type"`
	PhysicalWidth  float64 `json:"physical_width"`
	PhysicalHeight float64 `json:"physical_height"`
	LogicalWidth   float64 `json:"logical_width"`
	LogicalHeight  float64 `json:"logical_height"`
	ScaleFactor    float64 `json:"scale_factor"`
	Delivery       string  `json:"delivery"`
	OpenedAt       string  `json:"opened_at"`
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowSummary `json:"windows"`
	Count   int             `json:"count"`
}

// CloseWindowInput is the input for the close_window tool.
type CloseWindowInput struct {
	Identity string `json:"identity" jsonschema:"required,Window identity as returned by open_image or list_windows (e.g. main-0)"`
}

// CloseWindowOutput is the output for the close_window tool.
type CloseWindowOutput struct {
	Closed string `json:"closed"`
}

// ReadImageInput is the input for the read_image tool.
type ReadImageInput struct {
	Path string `json:"path" jsonschema:"required,Absolute path of the image file to read"`
}

// ReadImageOutput is the output for the read_image tool.
type ReadImageOutput struct {
	MIMEType string `json:"mime_type"`
	Width    uint32 `json:"width"`
	Height   uint32 `json:"height"`
}
