// Package hotkeys binds keyboard shortcuts to individual pinned windows.
package hotkeys

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"
)

// Action is something a key press does to the focused pinned window.
type Action string

const (
	ActionCopy  Action = "copy"
	ActionSave  Action = "save"
	ActionClose Action = "close"
)

// Keymap lists the key sequences, in keybind syntax, that trigger each
// action.
type Keymap map[Action][]string

// DefaultKeymap is Ctrl+C to copy, Ctrl+S to save, Escape or q to close.
func DefaultKeymap() Keymap {
	return Keymap{
		ActionCopy:  {"control-c"},
		ActionSave:  {"control-s"},
		ActionClose: {"Escape", "q"},
	}
}

// Actions returns the bound actions in a stable order.
func (k Keymap) Actions() []Action {
	actions := make([]Action, 0, len(k))
	for a := range k {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// Handler attaches keymaps to windows on one X connection.
type Handler struct {
	xu     *xgbutil.XUtil
	keymap Keymap
	logger *slog.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a handler for xu. A nil keymap means DefaultKeymap.
func NewHandler(xu *xgbutil.XUtil, keymap Keymap, logger *slog.Logger) *Handler {
	if keymap == nil {
		keymap = DefaultKeymap()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{xu: xu, keymap: keymap, logger: logger}
}

// Bind connects every sequence in the keymap on win to fire(action). The
// window must be listening for KeyPress events. Sequences that fail to parse
// are skipped and reported together.
func (h *Handler) Bind(win xproto.Window, fire func(Action)) error {
	var errs []error
	for _, action := range h.keymap.Actions() {
		for _, seq := range h.keymap[action] {
			action := action
			err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
				h.logger.Debug("key binding triggered", "window", win, "action", action)
				fire(action)
			}).Connect(h.xu, win, seq, false)
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to bind %q to %s: %w", seq, action, err))
			}
		}
	}
	return errors.Join(errs...)
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	xevent.IgnoreMods = ignoreMasks(base)
}

// ignoreMasks returns every combination of the base lock masks, including
// the empty one.
func ignoreMasks(base []uint16) []uint16 {
	masks := make([]uint16, 0, 1<<len(base))
	for subset := 0; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		masks = append(masks, mask)
	}
	return masks
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
