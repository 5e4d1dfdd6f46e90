package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/FengZhongShaoNian/sticky/internal/cli"
	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/geometry"
	"github.com/FengZhongShaoNian/sticky/internal/hotkeys"
	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
	"github.com/FengZhongShaoNian/sticky/internal/ipc"
	"github.com/FengZhongShaoNian/sticky/internal/windows"
)

// emitTimeout bounds how long EMIT waits for room on the bus.
const emitTimeout = 2 * time.Second

var _ ipc.Handler = (*App)(nil)

// Open handles a forwarded invocation.
func (a *App) Open(p ipc.OpenPayload) (*ipc.OpenData, error) {
	args, err := cli.ParseOpen(p.Args, p.Cwd)
	if errors.Is(err, cli.ErrHelp) {
		return nil, errors.New("--help is only available in the invoking terminal")
	}
	if err != nil {
		return nil, err
	}

	a.logger.Info("forwarded invocation", "args", p.Args, "cwd", p.Cwd)
	res := a.OpenPath(args.Path)
	if res.Err != nil {
		return nil, res.Err
	}
	return &ipc.OpenData{
		Identity: string(res.Identity),
		Origin:   res.Origin.String(),
		Path:     res.Path,
	}, nil
}

// ReadImage decodes path.
func (a *App) ReadImage(path string) (*imagecodec.Image, error) {
	return imagecodec.DecodeFile(path)
}

// WriteImage writes the decoded payload bytes to path as-is.
func (a *App) WriteImage(path string, payload imagecodec.Payload) error {
	data, err := imagecodec.DecodeTransport(payload)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	a.logger.Info("image written", "path", path, "bytes", len(data))
	return nil
}

// CopyImage decodes payload and puts it on the clipboard.
func (a *App) CopyImage(payload imagecodec.Payload) error {
	img, err := payload.Decode()
	if err != nil {
		return err
	}
	if err := a.copyImage(img); err != nil {
		return fmt.Errorf("failed to copy image: %w", err)
	}
	return nil
}

// ListWindows returns the open windows.
func (a *App) ListWindows() []windows.Info {
	return a.manager.List()
}

// CloseWindow closes one window.
func (a *App) CloseWindow(id windows.Identity) error {
	return a.manager.Close(id)
}

// SetFixedSize re-pins a window to a logical size.
func (a *App) SetFixedSize(p ipc.SetFixedSizePayload) error {
	id, err := windows.ParseIdentity(p.Identity)
	if err != nil {
		return err
	}
	return a.manager.SetFixedSize(id, geometry.Size{Width: p.Width, Height: p.Height})
}

// Emit posts a front-end message onto the bus.
func (a *App) Emit(m events.Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
	defer cancel()
	if err := a.events.Publish(ctx, m); err != nil {
		return fmt.Errorf("failed to emit %s: %w", m.Type(), err)
	}
	return nil
}

// Status reports the instance's state.
func (a *App) Status() ipc.StatusData {
	pending := 0
	if a.pending != nil {
		pending = a.pending.Armed()
	}
	return ipc.StatusData{
		PID:               os.Getpid(),
		Version:           a.version,
		UptimeSeconds:     int64(time.Since(a.started).Seconds()),
		OpenWindows:       a.manager.Count(),
		PendingDeliveries: pending,
		ScaleOverride:     a.override,
	}
}

// Quit asks the process to exit. Only the first call has an effect.
func (a *App) Quit() {
	a.quitOnce.Do(func() {
		a.logger.Info("quit requested")
		a.quit()
	})
}

// HandleAction runs a window key binding. It is called on the X event loop,
// so the work happens on another goroutine.
func (a *App) HandleAction(label string, action hotkeys.Action) {
	id, err := windows.ParseIdentity(label)
	if err != nil {
		a.logger.Warn("key binding on unknown window", "label", label)
		return
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		var err error
		switch action {
		case hotkeys.ActionCopy:
			err = a.CopyWindow(id)
		case hotkeys.ActionSave:
			_, err = a.SaveWindow(id)
		case hotkeys.ActionClose:
			err = a.manager.Close(id)
		default:
			err = fmt.Errorf("unknown action %q", action)
		}
		if err != nil {
			a.logger.Warn("window action failed", "identity", id, "action", action, "error", err)
		}
	}()
}
