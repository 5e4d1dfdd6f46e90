package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/FengZhongShaoNian/sticky/internal/app"
	"github.com/FengZhongShaoNian/sticky/internal/clipboard"
	"github.com/FengZhongShaoNian/sticky/internal/config"
	"github.com/FengZhongShaoNian/sticky/internal/events"
	"github.com/FengZhongShaoNian/sticky/internal/handshake"
	"github.com/FengZhongShaoNian/sticky/internal/hotkeys"
	"github.com/FengZhongShaoNian/sticky/internal/ipc"
	"github.com/FengZhongShaoNian/sticky/internal/logging"
	"github.com/FengZhongShaoNian/sticky/internal/notify"
	"github.com/FengZhongShaoNian/sticky/internal/platform"
	"github.com/FengZhongShaoNian/sticky/internal/source"
	"github.com/FengZhongShaoNian/sticky/internal/windows"
	"github.com/FengZhongShaoNian/sticky/internal/x11"
)

// runPrimary runs this process as the instance that owns the windows. path is
// the image requested on our own command line (empty for the clipboard).
func runPrimary(path string, args []string, cwd string) int {
	res, err := config.LoadWithSources()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := res.Config
	if res.File != "" {
		log.Printf("Configuration loaded from %s", res.File)
	}

	logger, logCloser, err := logging.New(cfg.GetLoggingConfig())
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	if cfg.XAuthority != "" {
		os.Setenv("XAUTHORITY", cfg.XAuthority)
	}
	conn, err := x11.NewConnection(cfg.Display)
	if err != nil {
		log.Fatalf("Failed to connect to display: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Front-end messages flow from the windows through the bus to the
	// handshake dispatcher.
	bus := events.NewBus(events.DefaultBusSize)
	defer bus.Close()
	registry := handshake.NewRegistry(logging.Component(logger, "handshake"))
	go registry.Run(ctx, bus.Messages())

	// Key bindings only fire inside EventLoop, after application is set.
	var application *app.App
	backend, err := platform.NewLinuxBackend(platform.LinuxConfig{
		Conn:   conn,
		Events: bus,
		Keymap: hotkeys.DefaultKeymap(),
		OnAction: func(label string, action hotkeys.Action) {
			application.HandleAction(label, action)
		},
		Logger: logging.Component(logger, "platform"),
	})
	if err != nil {
		log.Fatalf("Failed to create window system: %v", err)
	}

	manager, err := windows.NewManager(windows.Config{
		System:   backend,
		Registry: registry,
		Scale:    cfg.ScaleSource(),
		Logger:   logging.Component(logger, "windows"),
	})
	if err != nil {
		log.Fatalf("Failed to create window manager: %v", err)
	}

	clip := clipboard.New(logging.Component(logger, "clipboard"))

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			if err := application.Shutdown(); err != nil {
				logger.Warn("failed to close windows", "error", err)
			}
			backend.Quit()
		})
	}

	application, err = app.New(app.Config{
		Manager: manager,
		Resolver: &source.Resolver{
			Clipboard: clip,
			Logger:    logging.Component(logger, "source"),
		},
		Clipboard:     clip,
		Notifier:      notify.New(cfg.Notifications, logging.Component(logger, "notify")),
		Events:        bus,
		Pending:       registry,
		SaveDir:       cfg.ResolvedSaveDir(),
		ScaleOverride: cfg.ScaleFactor,
		Version:       version,
		Quit:          shutdown,
		Logger:        logging.Component(logger, "app"),
	})
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	server, err := ipc.NewServer(application, logging.Component(logger, "ipc"))
	if err != nil {
		log.Fatalf("Failed to create IPC server: %v", err)
	}
	if err := server.Start(); err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			// Another instance won the race; hand our request to it.
			return forwardOpen(ipc.NewClientAt(server.SocketPath()), args, cwd)
		}
		log.Fatalf("Failed to start IPC server: %v", err)
	}
	defer server.Stop()
	log.Printf("sticky %s started (socket: %s)", version, server.SocketPath())

	go func() {
		r := <-application.OpenAsync(path)
		switch {
		case r.Err != nil:
			logger.Error("failed to open image", "path", path, "error", r.Err)
		case r.Identity == "":
			logger.Info("nothing to open, waiting for forwarded requests")
		default:
			logger.Info("image pinned", "identity", r.Identity, "origin", r.Origin, "path", r.Path)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		shutdown()
	}()

	backend.EventLoop()
	log.Println("sticky stopped")
	return 0
}
