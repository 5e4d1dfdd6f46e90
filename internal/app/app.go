// Package app wires the image pipeline together and serves the commands the
// running instance accepts.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/geometry"
	"github.com/FengZhongShaoNian/sticky/internal/imagecodec"
	"github.com/FengZhongShaoNian/sticky/internal/source"
	"github.com/FengZhongShaoNian/sticky/internal/windows"
)

// WindowManager is the part of windows.Manager the app drives.
type WindowManager interface {
	Open(img *imagecodec.Image, path string) (windows.Identity, error)
	Close(id windows.Identity) error
	CloseAll() error
	List() []windows.Info
	SetFixedSize(id windows.Identity, logical geometry.Size) error
	Image(id windows.Identity) (*imagecodec.Image, bool)
	Count() int
}

// ImageResolver picks the image for an open request.
type ImageResolver interface {
	ResolveDetailed(path string) source.Result
}

// ClipboardWriter puts images on the system clipboard.
type ClipboardWriter interface {
	WriteImage(img *imagecodec.Image) error
}

// Notifier reports user-visible outcomes.
type Notifier interface {
	Saved(path string) error
	Copied() error
	Failed(action string, err error) error
	FellBack(path, reason string) error
}

// Publisher forwards front-end messages to the handshake.
type Publisher interface {
	Publish(ctx context.Context, m events.Message) error
}

// PendingCounter reports undelivered images.
type PendingCounter interface {
	Armed() int
}

// Config holds an App's collaborators.
type Config struct {
	Manager   WindowManager
	Resolver  ImageResolver
	Clipboard ClipboardWriter
	Notifier  Notifier
	Events    Publisher
	Pending   PendingCounter
	// SaveDir receives images saved from a window.
	SaveDir       string
	ScaleOverride string
	Version       string
	// Quit is called once when a QUIT command arrives.
	Quit   func()
	Logger *slog.Logger
}

// App is the running instance.
type App struct {
	manager   WindowManager
	resolver  ImageResolver
	clipboard ClipboardWriter
	notifier  Notifier
	events    Publisher
	pending   PendingCounter
	saveDir   string
	override  string
	version   string
	quit      func()
	quitOnce  sync.Once
	logger    *slog.Logger
	started   time.Time
	now       func() time.Time

	wg sync.WaitGroup
}

// OpenResult is the outcome of an asynchronous open.
type OpenResult struct {
	Identity windows.Identity
	Origin   source.Origin
	Path     string
	Err      error
}

// New validates cfg and returns an App.
func New(cfg Config) (*App, error) {
	if cfg.Manager == nil {
		return nil, errors.New("app: window manager is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("app: image resolver is required")
	}
	if cfg.Events == nil {
		return nil, errors.New("app: event publisher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	quit := cfg.Quit
	if quit == nil {
		quit = func() {}
	}
	return &App{
		manager:   cfg.Manager,
		resolver:  cfg.Resolver,
		clipboard: cfg.Clipboard,
		notifier:  cfg.Notifier,
		events:    cfg.Events,
		pending:   cfg.Pending,
		saveDir:   cfg.SaveDir,
		override:  cfg.ScaleOverride,
		version:   cfg.Version,
		quit:      quit,
		logger:    logger,
		started:   time.Now(),
		now:       time.Now,
	}, nil
}

// OpenPath resolves path (empty for the clipboard) and pins the result. No
// available image is not an error: the result has OriginNone.
func (a *App) OpenPath(path string) OpenResult {
	res := a.resolver.ResolveDetailed(path)
	if res.Image == nil {
		a.logger.Info("nothing to open", "path", path)
		return OpenResult{Origin: source.OriginNone}
	}
	if res.FellBack() {
		a.notify(func(n Notifier) error { return n.FellBack(path, res.FallbackReason) })
	}

	id, err := a.manager.Open(res.Image, res.Path)
	if err != nil {
		return OpenResult{Origin: res.Origin, Path: res.Path, Err: err}
	}
	return OpenResult{Identity: id, Origin: res.Origin, Path: res.Path}
}

// OpenAsync runs OpenPath on its own goroutine so decoding never blocks the
// caller. The channel receives exactly one result.
func (a *App) OpenAsync(path string) <-chan OpenResult {
	out := make(chan OpenResult, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		out <- a.OpenPath(path)
	}()
	return out
}

// CopyWindow puts the image pinned in window id on the clipboard.
func (a *App) CopyWindow(id windows.Identity) error {
	img, ok := a.manager.Image(id)
	if !ok {
		return fmt.Errorf("%w: %s", windows.ErrUnknownWindow, id)
	}
	if err := a.copyImage(img); err != nil {
		a.notify(func(n Notifier) error { return n.Failed("copy image", err) })
		return err
	}
	a.notify(func(n Notifier) error { return n.Copied() })
	return nil
}

// SaveWindow writes the image pinned in window id into the save directory
// and returns the new file's path.
func (a *App) SaveWindow(id windows.Identity) (string, error) {
	img, ok := a.manager.Image(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", windows.ErrUnknownWindow, id)
	}

	path, err := a.saveImage(img)
	if err != nil {
		a.notify(func(n Notifier) error { return n.Failed("save image", err) })
		return "", err
	}
	a.logger.Info("image saved", "identity", id, "path", path)
	a.notify(func(n Notifier) error { return n.Saved(path) })
	return path, nil
}

func (a *App) copyImage(img *imagecodec.Image) error {
	if a.clipboard == nil {
		return errors.New("clipboard is not available")
	}
	return a.clipboard.WriteImage(img)
}

func (a *App) saveImage(img *imagecodec.Image) (string, error) {
	if a.saveDir == "" {
		return "", errors.New("no save directory configured")
	}
	if err := os.MkdirAll(a.saveDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create save directory: %w", err)
	}

	base := "sticky-" + a.now().Format("20060102-150405")
	ext := imagecodec.Extension(img.MIMEType)
	for i := 0; ; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", base, i, ext)
		}
		path := filepath.Join(a.saveDir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create %s: %w", path, err)
		}
		if _, err := f.Write(img.Bytes); err != nil {
			f.Close()
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", path, err)
		}
		return path, nil
	}
}

func (a *App) notify(send func(Notifier) error) {
	if a.notifier == nil {
		return
	}
	// The notifier logs its own failures.
	_ = send(a.notifier)
}

// Shutdown closes every window and waits for in-flight opens.
func (a *App) Shutdown() error {
	a.wg.Wait()
	return a.manager.CloseAll()
}
