package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/FengZhongShaoNian/sticky/internal/cli"
	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
	"github.com/FengZhongShaoNian/sticky/internal/ipc"
)

// maxStdinPayload matches the largest request the instance accepts.
const maxStdinPayload = 256 << 20

func runRead(args []string) int {
	fs := newCommandFlags("read",
		"Usage: sticky read PATH [--info]",
		"",
		"Decode PATH in the running instance and print it as a data URL.")
	info := fs.Bool("info", false, "Print MIME type and dimensions instead of the payload")
	if code, ok := parseCommand(fs, args, 1); !ok {
		return code
	}

	path, err := absoluteArg(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	data, err := ipc.NewClient().ReadImage(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *info {
		fmt.Printf("%s\t%dx%d\n", data.MIMEType, data.Width, data.Height)
		return 0
	}
	fmt.Println(data.Payload)
	return 0
}

func runWrite(args []string) int {
	fs := newCommandFlags("write",
		"Usage: sticky write PATH < payload",
		"",
		"Write an image, given on stdin as a data URL or bare base64, to PATH.")
	if code, ok := parseCommand(fs, args, 1); !ok {
		return code
	}

	path, err := absoluteArg(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	payload, err := readStdinPayload()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().WriteImage(path, payload); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runCopy(args []string) int {
	fs := newCommandFlags("copy",
		"Usage: sticky copy < payload",
		"",
		"Put an image, given on stdin as a data URL or bare base64, on the clipboard.")
	if code, ok := parseCommand(fs, args, 0); !ok {
		return code
	}

	payload, err := readStdinPayload()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().CopyImage(payload); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runEmit(args []string) int {
	fs := newCommandFlags("emit",
		"Usage: sticky emit MESSAGE",
		"",
		"Post a front-end message to the running instance, e.g.",
		`  sticky emit '{"type":"ready","identity":"main-0"}'`)
	if code, ok := parseCommand(fs, args, 1); !ok {
		return code
	}

	msg, err := events.Parse([]byte(fs.Arg(0)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := ipc.NewClient().Emit(msg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// readStdinPayload reads a transport payload piped on stdin.
func readStdinPayload() (imagecodec.Payload, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("expected an image payload on stdin, e.g. 'sticky read in.png | sticky write out.png'")
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, maxStdinPayload+1))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) > maxStdinPayload {
		return "", fmt.Errorf("payload on stdin exceeds %d bytes", maxStdinPayload)
	}
	body := strings.TrimSpace(string(data))
	if body == "" {
		return "", errors.New("empty payload on stdin")
	}
	return imagecodec.Payload(body), nil
}

// absoluteArg resolves a path argument against our working directory, since
// the running instance may have been started elsewhere.
func absoluteArg(path string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return cli.Absolute(path, cwd), nil
}
