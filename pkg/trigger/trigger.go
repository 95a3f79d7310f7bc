// Package trigger maps user gestures (hotkey chord, two-zone pill) onto
// orchestrator invocations.
package trigger

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"osmandlink/pkg/compose"
)

// KeyEvent is a keyboard event as reported by the host page.
type KeyEvent struct {
	Key   string `json:"key"`
	Alt   bool   `json:"alt"`
	Ctrl  bool   `json:"ctrl"`
	Meta  bool   `json:"meta"`
	Shift bool   `json:"shift"`
}

// Hotkey is a modifier chord plus one key. All modifiers must match exactly.
type Hotkey struct {
	Alt   bool
	Ctrl  bool
	Meta  bool
	Shift bool
	Key   string
}

// ParseHotkey parses chords like "alt+o" or "Ctrl+Shift+L".
func ParseHotkey(s string) (Hotkey, error) {
	var hk Hotkey
	parts := strings.Split(strings.TrimSpace(s), "+")
	for i, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		if i == len(parts)-1 {
			if p == "" {
				return Hotkey{}, fmt.Errorf("hotkey %q has no key", s)
			}
			hk.Key = p
			break
		}
		switch p {
		case "alt", "option":
			hk.Alt = true
		case "ctrl", "control":
			hk.Ctrl = true
		case "meta", "cmd", "super":
			hk.Meta = true
		case "shift":
			hk.Shift = true
		default:
			return Hotkey{}, fmt.Errorf("hotkey %q: unknown modifier %q", s, part)
		}
	}
	return hk, nil
}

// String renders the chord in ParseHotkey form.
func (h Hotkey) String() string {
	var parts []string
	if h.Alt {
		parts = append(parts, "alt")
	}
	if h.Ctrl {
		parts = append(parts, "ctrl")
	}
	if h.Meta {
		parts = append(parts, "meta")
	}
	if h.Shift {
		parts = append(parts, "shift")
	}
	return strings.Join(append(parts, h.Key), "+")
}

// Matches reports whether e is exactly this chord. Key comparison ignores case.
func (h Hotkey) Matches(e KeyEvent) bool {
	if h.Key == "" {
		return false
	}
	return h.Alt == e.Alt &&
		h.Ctrl == e.Ctrl &&
		h.Meta == e.Meta &&
		h.Shift == e.Shift &&
		strings.EqualFold(h.Key, e.Key)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *Hotkey) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	hk, err := ParseHotkey(raw)
	if err != nil {
		return err
	}
	*h = hk
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (h Hotkey) MarshalYAML() (interface{}, error) {
	return h.String(), nil
}

// Zone is one half of the split pill control.
type Zone string

const (
	ZoneLeft  Zone = "left"
	ZoneRight Zone = "right"
)

// ZoneAt returns the half hit by a pointer at offset x within a control of the given width.
// The midpoint belongs to the left half.
func ZoneAt(x, width float64) Zone {
	if x <= width/2 {
		return ZoneLeft
	}
	return ZoneRight
}

// Policy picks the append policy configured for this zone, falling back to the
// original defaults when unset.
func (z Zone) Policy(left, right compose.Policy) compose.Policy {
	if z == ZoneLeft {
		if left == "" {
			return compose.PolicyNone
		}
		return left
	}
	if right == "" {
		return compose.PolicyAddressAndLink
	}
	return right
}
