package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/FengZhongShaoNian/sticky/internal/cli"
	"github.com/FengZhongShaoNian/sticky/internal/geometry"
	"github.com/FengZhongShaoNian/sticky/internal/ipc"
	"github.com/FengZhongShaoNian/sticky/internal/windows"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		os.Exit(runOpen(nil))
	}

	switch os.Args[1] {
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "quit":
		os.Exit(runQuit(os.Args[2:]))
	case "list":
		os.Exit(runList(os.Args[2:]))
	case "close":
		os.Exit(runClose(os.Args[2:]))
	case "resize":
		os.Exit(runResize(os.Args[2:]))
	case "read":
		os.Exit(runRead(os.Args[2:]))
	case "write":
		os.Exit(runWrite(os.Args[2:]))
	case "copy":
		os.Exit(runCopy(os.Args[2:]))
	case "emit":
		os.Exit(runEmit(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "version":
		fmt.Println(version)
		os.Exit(0)
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		os.Exit(runOpen(os.Args[1:]))
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: sticky [--path PATH | PATH]")
	fmt.Fprintln(w, "       sticky <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Without a command, pins PATH (or the clipboard image) in an always-on-top")
	fmt.Fprintln(w, "window. If sticky is already running the request is forwarded to it.")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  status              Show status of the running instance")
	fmt.Fprintln(w, "  quit                Close all windows and exit the running instance")
	fmt.Fprintln(w, "  list                List pinned windows")
	fmt.Fprintln(w, "  close IDENTITY      Close a pinned window")
	fmt.Fprintln(w, "  resize IDENTITY W H Pin a window to a logical size")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  read PATH           Print an image file as a data URL")
	fmt.Fprintln(w, "  write PATH          Write a data URL read from stdin to PATH")
	fmt.Fprintln(w, "  copy                Put a data URL read from stdin on the clipboard")
	fmt.Fprintln(w, "  emit MESSAGE        Post a front-end message (JSON) to the running instance")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config init         Write a default config file")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "  version             Print the version")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'sticky <command> --help' for command-specific options.")
}

// runOpen forwards the invocation to the running instance, or becomes it.
func runOpen(args []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to get working directory: %v\n", err)
		return 1
	}

	open, err := cli.ParseOpen(args, cwd)
	if err != nil {
		if errors.Is(err, cli.ErrHelp) {
			cli.PrintUsage(os.Stdout)
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "")
		cli.PrintUsage(os.Stderr)
		return 2
	}

	client := ipc.NewClient()
	if client.Ping() {
		return forwardOpen(client, args, cwd)
	}
	return runPrimary(open.Path, args, cwd)
}

func forwardOpen(client *ipc.Client, args []string, cwd string) int {
	data, err := client.Open(args, cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	printOpened(data)
	return 0
}

func printOpened(data *ipc.OpenData) {
	if data == nil || data.Identity == "" {
		fmt.Println("nothing to open: no readable file and no image on the clipboard")
		return
	}
	if data.Path != "" {
		fmt.Printf("%s\t%s\t%s\n", data.Identity, data.Origin, data.Path)
		return
	}
	fmt.Printf("%s\t%s\n", data.Identity, data.Origin)
}

// newCommandFlags returns a flag set whose usage prints the given lines.
func newCommandFlags(name string, usage ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		for _, line := range usage {
			fmt.Fprintln(os.Stderr, line)
		}
		if fs.HasFlags() {
			fmt.Fprintln(os.Stderr, "")
			fs.PrintDefaults()
		}
	}
	return fs
}

// parseCommand parses args and checks the positional count. It returns an
// exit code and false when the caller should stop.
func parseCommand(fs *pflag.FlagSet, args []string, nargs int) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	if fs.NArg() != nargs {
		if nargs == 0 {
			fmt.Fprintf(os.Stderr, "%s takes no arguments\n", fs.Name())
		} else {
			fmt.Fprintf(os.Stderr, "%s expects %d argument(s), got %d\n", fs.Name(), nargs, fs.NArg())
		}
		fs.Usage()
		return 2, false
	}
	return 0, true
}

func runStatus(args []string) int {
	fs := newCommandFlags("status",
		"Usage: sticky status [--json]",
		"",
		"Show status of the running instance via IPC.")
	asJSON := fs.Bool("json", false, "Print status as JSON")
	if code, ok := parseCommand(fs, args, 0); !ok {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(status)
	}
	fmt.Printf("pid:                %d\n", status.PID)
	fmt.Printf("version:            %s\n", status.Version)
	fmt.Printf("uptime_seconds:     %d\n", status.UptimeSeconds)
	fmt.Printf("open_windows:       %d\n", status.OpenWindows)
	fmt.Printf("pending_deliveries: %d\n", status.PendingDeliveries)
	if status.ScaleOverride != "" {
		fmt.Printf("scale_override:     %s\n", status.ScaleOverride)
	}
	return 0
}

func runQuit(args []string) int {
	fs := newCommandFlags("quit",
		"Usage: sticky quit",
		"",
		"Close every pinned window and stop the running instance.")
	if code, ok := parseCommand(fs, args, 0); !ok {
		return code
	}

	if err := ipc.NewClient().Quit(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runList(args []string) int {
	fs := newCommandFlags("list",
		"Usage: sticky list [--json]",
		"",
		"List the pinned windows of the running instance.")
	asJSON := fs.Bool("json", false, "Print windows as JSON")
	if code, ok := parseCommand(fs, args, 0); !ok {
		return code
	}

	list, err := ipc.NewClient().ListWindows()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(list)
	}
	if len(list) == 0 {
		fmt.Println("no pinned windows")
		return 0
	}
	for _, w := range list {
		path := w.Path
		if path == "" {
			path = "(clipboard)"
		}
		fmt.Printf("%s\t%s\t%s @%g\t%s\t%s\n", w.Identity, w.Physical, w.Logical, w.ScaleFactor, w.Delivery, path)
	}
	return 0
}

func runClose(args []string) int {
	fs := newCommandFlags("close",
		"Usage: sticky close IDENTITY",
		"",
		"Close a pinned window, e.g. 'sticky close main-0'.")
	if code, ok := parseCommand(fs, args, 1); !ok {
		return code
	}

	id, err := windows.ParseIdentity(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().CloseWindow(id); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runResize(args []string) int {
	fs := newCommandFlags("resize",
		"Usage: sticky resize IDENTITY WIDTH HEIGHT",
		"",
		"Pin a window to WIDTHxHEIGHT logical pixels (min = max = size).")
	if code, ok := parseCommand(fs, args, 3); !ok {
		return code
	}

	id, err := windows.ParseIdentity(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	width, err := strconv.ParseFloat(fs.Arg(1), 64)
	if err != nil || width <= 0 {
		fmt.Fprintf(os.Stderr, "invalid width %q\n", fs.Arg(1))
		return 2
	}
	height, err := strconv.ParseFloat(fs.Arg(2), 64)
	if err != nil || height <= 0 {
		fmt.Fprintf(os.Stderr, "invalid height %q\n", fs.Arg(2))
		return 2
	}

	if err := ipc.NewClient().SetFixedSize(id, geometry.Size{Width: width, Height: height}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
