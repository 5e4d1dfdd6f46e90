package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/mousebind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Connection manages the X11 connection and core X resources
type Connection struct {
	XUtil *xgbutil.XUtil
	Root  xproto.Window

	// wake receives the client message that unblocks EventLoop on Quit.
	wake xproto.Window
}

// NewConnection connects to display, or to $DISPLAY when display is empty,
// and initializes the keyboard and mouse binding modules.
func NewConnection(display string) (*Connection, error) {
	var (
		xu  *xgbutil.XUtil
		err error
	)
	if display == "" {
		xu, err = xgbutil.NewConn()
	} else {
		xu, err = xgbutil.NewConnDisplay(display)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	// Per-window key and button bindings go through these.
	keybind.Initialize(xu)
	mousebind.Initialize(xu)

	wake, err := xproto.NewWindowId(xu.Conn())
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("failed to allocate window id: %w", err)
	}
	err = xproto.CreateWindowChecked(xu.Conn(), 0, wake, xu.RootWin(),
		-1, -1, 1, 1, 0, xproto.WindowClassInputOnly, 0, 0, nil).Check()
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("failed to create wake window: %w", err)
	}

	return &Connection{
		XUtil: xu,
		Root:  xu.RootWin(),
		wake:  wake,
	}, nil
}

// EventLoop starts the main X11 event loop (blocking)
func (c *Connection) EventLoop() {
	xevent.Main(c.XUtil)
}

// Quit makes EventLoop return. It is safe to call from any goroutine.
func (c *Connection) Quit() {
	xevent.Quit(c.XUtil)

	// The loop only checks for quit between events.
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: c.wake,
		Type:   xproto.AtomNone,
		Data:   xproto.ClientMessageDataUnionData32New(make([]uint32, 5)),
	}
	xproto.SendEvent(c.XUtil.Conn(), false, c.wake, 0, string(ev.Bytes()))
	c.XUtil.Sync()
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
