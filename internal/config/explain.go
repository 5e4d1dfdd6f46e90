package config

import (
	"fmt"
	"os"

	"github.com/FengZhongShaoNian/sticky/internal/geometry"
)

// Explain returns the effective value at a YAML path and where it came from.
//
// Supported paths:
//
//	scale_factor
//	save_dir
//	notifications
//	display
//	xauthority
//	logging.level
//	logging.file
//	logging.max_size_mb
//	logging.max_files
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if path == "scale_factor" {
		if v, ok := os.LookupEnv(geometry.EnvScaleFactor); ok && v != "" {
			return v, Source{Kind: SourceEnv, Name: geometry.EnvScaleFactor}, nil
		}
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	switch path {
	case "scale_factor":
		return cfg.ScaleFactor, nil
	case "save_dir":
		return cfg.SaveDir, nil
	case "notifications":
		return cfg.Notifications, nil
	case "display":
		return cfg.Display, nil
	case "xauthority":
		return cfg.XAuthority, nil
	case "logging.level":
		return cfg.Logging.Level, nil
	case "logging.file":
		return cfg.Logging.File, nil
	case "logging.max_size_mb":
		return cfg.Logging.MaxSizeMB, nil
	case "logging.max_files":
		return cfg.Logging.MaxFiles, nil
	default:
		return nil, fmt.Errorf("unknown config path %q", path)
	}
}
