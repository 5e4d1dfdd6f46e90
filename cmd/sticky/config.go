package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/FengZhongShaoNian/sticky/internal/config"
)

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  sticky config init [--path PATH] [--force]")
		fmt.Fprintln(os.Stderr, "  sticky config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  sticky config print [--path PATH] [--defaults]")
		fmt.Fprintln(os.Stderr, "  sticky config explain [--path PATH] <yaml.path>")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintf(os.Stderr, "Default path: %s\n", config.DefaultConfigPath())
		return 2
	}

	switch args[0] {
	case "init":
		fs := newCommandFlags("init", "Usage: sticky config init [--path PATH] [--force]")
		path := fs.String("path", "", "Config file path")
		force := fs.Bool("force", false, "Overwrite an existing file")
		if code, ok := parseCommand(fs, args[1:], 0); !ok {
			return code
		}

		target := *path
		if target == "" {
			target = config.DefaultConfigPath()
		}
		if _, err := os.Stat(target); err == nil && !*force {
			fmt.Fprintf(os.Stderr, "%s already exists (use --force to overwrite)\n", target)
			return 1
		}
		if err := config.DefaultConfig().Save(target); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("config: wrote defaults to %s\n", target)
		return 0

	case "validate":
		fs := newCommandFlags("validate", "Usage: sticky config validate [--path PATH]")
		path := fs.String("path", "", "Config file path")
		if code, ok := parseCommand(fs, args[1:], 0); !ok {
			return code
		}

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		if res.File == "" {
			fmt.Println("config: ok (no file, using defaults)")
			return 0
		}
		fmt.Printf("config: ok (%s)\n", res.File)
		return 0

	case "print":
		fs := newCommandFlags("print", "Usage: sticky config print [--path PATH] [--defaults]")
		path := fs.String("path", "", "Config file path")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no files)")
		if code, ok := parseCommand(fs, args[1:], 0); !ok {
			return code
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			res, err := loadConfig(*path)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
			cfg = res.Config
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	case "explain":
		fs := newCommandFlags("explain", "Usage: sticky config explain [--path PATH] <yaml.path>")
		path := fs.String("path", "", "Config file path")
		if code, ok := parseCommand(fs, args[1:], 1); !ok {
			return code
		}
		queryPath := fs.Arg(0)

		res, err := loadConfig(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		value, src, err := config.Explain(res, queryPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		out, err := yaml.Marshal(value)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}

		fmt.Printf("path: %s\n", queryPath)
		fmt.Printf("source: %s\n", formatSource(src))
		fmt.Printf("value:\n%s", string(out))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func loadConfig(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

func formatSource(src config.Source) string {
	switch src.Kind {
	case config.SourceFile:
		if src.File == "" {
			return "file"
		}
		if src.Line > 0 {
			return fmt.Sprintf("file:%s:%d:%d", src.File, src.Line, src.Column)
		}
		return "file:" + src.File
	case config.SourceEnv:
		return "env:" + src.Name
	case config.SourceDefault:
		if src.Name != "" {
			return "default:" + src.Name
		}
		return "default"
	default:
		return string(src.Kind)
	}
}
