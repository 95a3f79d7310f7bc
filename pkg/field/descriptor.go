package field

import "strings"

// Descriptor is what the host page reports about the focused element.
type Descriptor struct {
	Tag             string `json:"tag"`
	Role            string `json:"role,omitempty"`
	ContentEditable bool   `json:"content_editable,omitempty"`
	Disabled        bool   `json:"disabled,omitempty"`
	ReadOnly        bool   `json:"read_only,omitempty"`
}

// Classify returns the variant for d, or false if the element is not editable.
// Inputs and textareas must be enabled and writable; contenteditable regions
// and textbox/combobox roles count as rich.
func Classify(d Descriptor) (Kind, bool) {
	switch strings.ToLower(d.Tag) {
	case "input", "textarea":
		if d.Disabled || d.ReadOnly {
			return "", false
		}
		return KindPlain, true
	}
	if d.ContentEditable {
		return KindRich, true
	}
	switch strings.ToLower(d.Role) {
	case "textbox", "combobox":
		return KindRich, true
	}
	return "", false
}

// Multiline reports whether a plain element of this tag keeps line breaks.
func (d Descriptor) Multiline() bool {
	return strings.EqualFold(d.Tag, "textarea")
}
