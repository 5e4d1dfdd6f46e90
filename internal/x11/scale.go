package x11

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/BurntSushi/xgbutil/xprop"
)

// baseDPI is the resolution X11 toolkits treat as a scale factor of 1.
const baseDPI = 96.0

// ScaleFactor returns Xft.dpi / 96 from the root window's RESOURCE_MANAGER.
// A display without an Xft.dpi resource is unscaled.
func (c *Connection) ScaleFactor() (float64, error) {
	resources, err := xprop.PropValStr(xprop.GetProperty(c.XUtil, c.Root, "RESOURCE_MANAGER"))
	if err != nil {
		// No resource database loaded.
		return 1, nil
	}
	dpi, ok := ParseXftDPI(resources)
	if !ok {
		return 1, nil
	}
	return dpi / baseDPI, nil
}

// ParseXftDPI finds a positive Xft.dpi value in an X resource database dump.
func ParseXftDPI(resources string) (float64, bool) {
	scanner := bufio.NewScanner(strings.NewReader(resources))
	for scanner.Scan() {
		name, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || strings.TrimSpace(name) != "Xft.dpi" {
			continue
		}
		dpi, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || dpi <= 0 {
			return 0, false
		}
		return dpi, true
	}
	return 0, false
}
