package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type SourceKind string

const (
	SourceDefault SourceKind = "default"
	SourceFile    SourceKind = "file"
	SourceEnv     SourceKind = "env"
)

type Source struct {
	Kind   SourceKind
	Name   string // env var name for SourceEnv
	File   string
	Line   int
	Column int
}

type LoadResult struct {
	Config  *Config
	Sources map[string]Source // YAML path -> file position
	File    string            // empty when no file was found
}

// ValidationError ties a bad value to its YAML path and, when known, the
// file position it came from.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// rawConfig mirrors Config with optional fields so unset keys keep defaults.
type rawConfig struct {
	ScaleFactor   *string           `yaml:"scale_factor"`
	SaveDir       *string           `yaml:"save_dir"`
	Notifications *bool             `yaml:"notifications"`
	Display       *string           `yaml:"display"`
	XAuthority    *string           `yaml:"xauthority"`
	Logging       *rawLoggingConfig `yaml:"logging"`
}

type rawLoggingConfig struct {
	Level     *string `yaml:"level"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

// Load reads the configuration from the standard location.
func Load() (*Config, error) {
	res, err := LoadWithSources()
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

// LoadWithSources loads config and returns file-level sources for introspection.
func LoadWithSources() (*LoadResult, error) {
	return LoadFromPath(DefaultConfigPath())
}

// LoadFromPath loads path over the defaults. A missing file is not an error.
func LoadFromPath(path string) (*LoadResult, error) {
	cfg := DefaultConfig()
	sources := map[string]Source{}
	file := ""

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		file = path
		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s: failed to parse yaml: %w", path, err)
		}
		var raw rawConfig
		if err := decodeStrictYAML(data, &raw); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		raw.applyTo(cfg)
		sources = collectSources(&doc, path)
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("%s: failed to read: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, attachSourceContext(err, sources)
	}
	if err := cfg.ScaleSource().Validate(); err != nil {
		return nil, &ValidationError{Path: "scale_factor", Source: Source{Kind: SourceEnv, Name: "STICKY_SCALE_FACTOR"}, Err: err}
	}

	return &LoadResult{Config: cfg, Sources: sources, File: file}, nil
}

func (r rawConfig) applyTo(cfg *Config) {
	if r.ScaleFactor != nil {
		cfg.ScaleFactor = *r.ScaleFactor
	}
	if r.SaveDir != nil {
		cfg.SaveDir = *r.SaveDir
	}
	if r.Notifications != nil {
		cfg.Notifications = *r.Notifications
	}
	if r.Display != nil {
		cfg.Display = *r.Display
	}
	if r.XAuthority != nil {
		cfg.XAuthority = *r.XAuthority
	}
	if l := r.Logging; l != nil {
		if l.Level != nil {
			cfg.Logging.Level = *l.Level
		}
		if l.File != nil {
			cfg.Logging.File = *l.File
		}
		if l.MaxSizeMB != nil {
			cfg.Logging.MaxSizeMB = *l.MaxSizeMB
		}
		if l.MaxFiles != nil {
			cfg.Logging.MaxFiles = *l.MaxFiles
		}
	}
}

func decodeStrictYAML(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return nil
}

func collectSources(doc *yaml.Node, file string) map[string]Source {
	out := make(map[string]Source)
	if doc == nil {
		return out
	}
	node := doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	collectSourcesRec(node, file, "", out)
	return out
}

func collectSourcesRec(node *yaml.Node, file string, prefix string, out map[string]Source) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		out[path] = Source{Kind: SourceFile, File: file, Line: val.Line, Column: val.Column}
		collectSourcesRec(val, file, path, out)
	}
}

func attachSourceContext(err error, sources map[string]Source) error {
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Path == "" {
		return err
	}
	if src, ok := sources[verr.Path]; ok {
		verr.Source = src
	}
	return verr
}
