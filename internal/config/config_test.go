package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"

	"github.com/FengZhongShaoNian/sticky/internal/geometry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
	if !cfg.Notifications {
		t.Fatalf("expected notifications on by default")
	}
	if cfg.SaveDir == "" {
		t.Fatalf("expected a default save_dir")
	}
}

func TestDefaultConfigPath_UsesXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	want := filepath.Join(dir, "sticky", "config.yaml")
	if got := DefaultConfigPath(); got != want {
		t.Fatalf("DefaultConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(geometry.EnvScaleFactor, "")
	res, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.File != "" {
		t.Fatalf("expected no file, got %q", res.File)
	}
	if res.Config.Logging.Level != "info" {
		t.Fatalf("expected default level info, got %q", res.Config.Logging.Level)
	}
}

func TestLoadFromPath_EmptyFileUsesDefaults(t *testing.T) {
	t.Setenv(geometry.EnvScaleFactor, "")
	res, err := LoadFromPath(writeConfig(t, "# empty\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !res.Config.Notifications {
		t.Fatalf("expected notifications default true")
	}
}

func TestLoadFromPath_Overrides(t *testing.T) {
	t.Setenv(geometry.EnvScaleFactor, "")
	path := writeConfig(t, strings.Join([]string{
		`scale_factor: "1.5"`,
		`save_dir: /tmp/pins`,
		`notifications: false`,
		`display: ":1"`,
		`logging:`,
		`  level: debug`,
		`  file: /tmp/sticky.log`,
		`  max_files: 5`,
		"",
	}, "\n"))

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg := res.Config
	if cfg.ScaleFactor != "1.5" || cfg.SaveDir != "/tmp/pins" || cfg.Notifications || cfg.Display != ":1" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.File != "/tmp/sticky.log" || cfg.Logging.MaxFiles != 5 {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}

	val, src, err := Explain(res, "logging.level")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "debug" || src.Kind != SourceFile || src.Line != 6 {
		t.Fatalf("explain logging.level = %v %+v", val, src)
	}

	scale, err := cfg.ScaleSource().Resolve(nil)
	if err != nil || scale != 1.5 {
		t.Fatalf("ScaleSource().Resolve() = %v, %v; want 1.5", scale, err)
	}
}

func TestLoadFromPath_StrictUnknownKeyErrors(t *testing.T) {
	path := writeConfig(t, "unknown_key: 1\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to include file path, got %v", err)
	}
}

func TestLoadFromPath_InvalidScaleFactorHasSourceContext(t *testing.T) {
	t.Setenv(geometry.EnvScaleFactor, "")
	path := writeConfig(t, "notifications: true\nscale_factor: abc\n")

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatalf("expected error for scale_factor abc")
	}
	if !errors.Is(err, geometry.ErrInvalidScaleFactor) {
		t.Fatalf("expected ErrInvalidScaleFactor, got %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if verr.Source.File != path || verr.Source.Line != 2 {
		t.Fatalf("expected source %s:2, got %+v", path, verr.Source)
	}
}

func TestLoadFromPath_InvalidEnvScaleFactor(t *testing.T) {
	t.Setenv(geometry.EnvScaleFactor, "abc")

	_, err := LoadFromPath(writeConfig(t, "scale_factor: \"2\"\n"))
	if !errors.Is(err, geometry.ErrInvalidScaleFactor) {
		t.Fatalf("expected ErrInvalidScaleFactor, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"empty save dir", func(c *Config) { c.SaveDir = " " }, "save_dir"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"negative size", func(c *Config) { c.Logging.MaxSizeMB = -1 }, "logging.max_size_mb"},
		{"negative files", func(c *Config) { c.Logging.MaxFiles = -1 }, "logging.max_files"},
		{"zero scale", func(c *Config) { c.ScaleFactor = "0" }, "scale_factor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if verr.Path != tt.path {
				t.Fatalf("Validate() path = %q, want %q", verr.Path, tt.path)
			}
		})
	}
}

func TestExplain_EnvScaleFactor(t *testing.T) {
	t.Setenv(geometry.EnvScaleFactor, "2")
	res := &LoadResult{Config: DefaultConfig(), Sources: map[string]Source{}}

	val, src, err := Explain(res, "scale_factor")
	if err != nil {
		t.Fatalf("explain: %v", err)
	}
	if val != "2" || src.Kind != SourceEnv {
		t.Fatalf("Explain(scale_factor) = %v %+v", val, src)
	}

	if _, _, err := Explain(res, "layouts.grid"); err == nil {
		t.Fatalf("expected error for unknown path")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv(geometry.EnvScaleFactor, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.SaveDir = "/tmp/out"
	cfg.ScaleFactor = "2"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	res, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if res.Config.SaveDir != "/tmp/out" || res.Config.ScaleFactor != "2" {
		t.Fatalf("round trip mismatch: %+v", res.Config)
	}
}

func TestGetLoggingConfig_ExpandsHome(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.File = "~/logs/sticky.log"
	cfg.Logging.Level = ""

	got := cfg.GetLoggingConfig()
	if got.File != filepath.Join(xdg.Home, "logs", "sticky.log") {
		t.Fatalf("File = %q", got.File)
	}
	if got.Level != "info" {
		t.Fatalf("Level = %q, want info", got.Level)
	}
}
