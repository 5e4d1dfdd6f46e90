// Package cli parses the image-opening command line shared by the primary
// process and forwarded invocations.
package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/pflag"
)

// ErrHelp is returned when -h or --help was given.
var ErrHelp = pflag.ErrHelp

// OpenArgs is a parsed open invocation.
type OpenArgs struct {
	// Path is absolute, or empty to pin the clipboard image.
	Path string
}

func newFlagSet(out io.Writer) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet("sticky", pflag.ContinueOnError)
	fs.SetOutput(out)
	path := fs.StringP("path", "p", "", "path of the image to pin (defaults to the clipboard image)")
	fs.Usage = func() {
		fmt.Fprintln(out, "Usage: sticky [--path PATH | PATH]")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Pins an image file, or the clipboard image, in an always-on-top window.")
		fmt.Fprintln(out)
		fs.PrintDefaults()
	}
	return fs, path
}

// ParseOpen parses args (without the program name). A relative path is
// resolved against cwd, which is the invoking process's directory and may
// differ from ours when the invocation was forwarded.
func ParseOpen(args []string, cwd string) (OpenArgs, error) {
	var usage bytes.Buffer
	fs, flagPath := newFlagSet(&usage)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return OpenArgs{}, ErrHelp
		}
		return OpenArgs{}, fmt.Errorf("invalid arguments: %w", err)
	}

	rest := fs.Args()
	if len(rest) > 1 {
		return OpenArgs{}, fmt.Errorf("invalid arguments: expected at most one path, got %d", len(rest))
	}

	path := *flagPath
	if len(rest) == 1 {
		if path != "" && path != rest[0] {
			return OpenArgs{}, fmt.Errorf("invalid arguments: both --path %q and %q given", path, rest[0])
		}
		path = rest[0]
	}

	return OpenArgs{Path: Absolute(path, cwd)}, nil
}

// Absolute resolves path against cwd. Empty stays empty.
func Absolute(path, cwd string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if cwd == "" {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return filepath.Join(cwd, path)
}

// PrintUsage writes the open-invocation usage text to w.
func PrintUsage(w io.Writer) {
	fs, _ := newFlagSet(w)
	fs.Usage()
}
