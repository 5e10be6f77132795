package hotkey

import (
	"fmt"
	"strings"
)

type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

const DefaultCombo = "ctrl+shift+space"

// Keys accepted as the final element of a combo.
var keyNames = []string{"space", "p", "f9", "f10", "f11", "f12"}

// Combo is a global key combination. Only ctrl and shift are offered as
// modifiers since they exist under the same name on every platform.
type Combo struct {
	Ctrl  bool
	Shift bool
	Key   string
}

func ParseCombo(s string) (Combo, error) {
	var c Combo
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i == len(parts)-1 {
			for _, k := range keyNames {
				if p == k {
					c.Key = p
					return c, nil
				}
			}
			return Combo{}, fmt.Errorf("unknown key %q (want one of %s)", p, strings.Join(keyNames, ", "))
		}
		switch p {
		case "ctrl":
			c.Ctrl = true
		case "shift":
			c.Shift = true
		default:
			return Combo{}, fmt.Errorf("unknown modifier %q", p)
		}
	}
	return Combo{}, fmt.Errorf("empty hotkey")
}

func (c Combo) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	name := strings.ToUpper(c.Key)
	if c.Key == "space" {
		name = "Space"
	}
	return strings.Join(append(parts, name), "+")
}
