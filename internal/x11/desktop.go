package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// pager/direct action
const sourceIndication = 2

// ActivateWindow raises and focuses a window using _NET_ACTIVE_WINDOW.
func (c *Connection) ActivateWindow(windowID xproto.Window) error {
	return c.sendRootMessage(windowID, "_NET_ACTIVE_WINDOW", sourceIndication, 0, 0, 0, 0)
}

// sendRootMessage builds the client message by hand because the xgbutil ewmh
// request helpers panic on this library version (uint vs int type assertion).
func (c *Connection) sendRootMessage(windowID xproto.Window, atomName string, data ...uint32) error {
	atomReply, err := xproto.InternAtom(c.XUtil.Conn(), false, uint16(len(atomName)), atomName).Reply()
	if err != nil {
		return fmt.Errorf("failed to intern %s: %w", atomName, err)
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atomReply.Atom,
		Data:   xproto.ClientMessageDataUnionData32New(data),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}
