package windows

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

const identityPrefix = "main-"

// Identity labels a pinned window for the lifetime of the process.
type Identity string

func (id Identity) String() string { return string(id) }

// ParseIdentity validates the "main-<n>" form.
func ParseIdentity(s string) (Identity, error) {
	n, ok := strings.CutPrefix(s, identityPrefix)
	if !ok {
		return "", fmt.Errorf("invalid window identity %q", s)
	}
	if _, err := strconv.ParseUint(n, 10, 64); err != nil {
		return "", fmt.Errorf("invalid window identity %q: %w", s, err)
	}
	return Identity(s), nil
}

// Counter hands out identities. The zero value starts at main-0. Identities
// are never reused.
type Counter struct {
	next atomic.Uint64
}

// Next allocates a fresh identity.
func (c *Counter) Next() Identity {
	n := c.next.Add(1) - 1
	return Identity(identityPrefix + strconv.FormatUint(n, 10))
}

// Issued returns how many identities have been allocated.
func (c *Counter) Issued() uint64 {
	return c.next.Load()
}
