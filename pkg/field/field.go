// Package field abstracts the editable surface an action reads from and
// writes back to.
package field

import (
	"errors"
	"strings"
)

// ErrWriteFailed indicates that neither the direct write nor the rich-text
// fallback could update the field.
var ErrWriteFailed = errors.New("field write failed")

// Kind tags the two supported field variants.
type Kind string

const (
	KindPlain Kind = "plain-input"
	KindRich  Kind = "rich-editable"
)

// Target is one focused editable surface.
type Target interface {
	Kind() Kind
	// Read returns the current text.
	Read() string
	// Write replaces the text and reports whether it took effect.
	Write(text string) bool
	// SingleLine reports whether the field cannot hold a line break.
	SingleLine() bool
}

// Event is a synthesized DOM notification.
type Event struct {
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	InputType string `json:"input_type,omitempty"`
}

// InputElement is an <input> or <textarea> in the host page.
type InputElement interface {
	Value() string
	SetValue(v string)
	Dispatch(e Event) error
	Multiline() bool
}

// RichElement is a contenteditable region (or role=textbox) in the host page.
type RichElement interface {
	Text() string
	Focus()
	// ExecCommand runs a native editing command and reports whether the host
	// accepted it. An error means the command is unavailable.
	ExecCommand(cmd, arg string) (bool, error)
	SetTextContent(text string)
	Dispatch(e Event) error
}

// Plain is the plain-input variant.
type Plain struct {
	el InputElement
}

// NewPlain wraps an input element.
func NewPlain(el InputElement) *Plain { return &Plain{el: el} }

func (p *Plain) Kind() Kind { return KindPlain }

func (p *Plain) Read() string { return p.el.Value() }

func (p *Plain) SingleLine() bool { return !p.el.Multiline() }

// Write sets the value and fires input, change and blur like a typing user.
func (p *Plain) Write(text string) bool {
	p.el.SetValue(text)
	for _, typ := range []string{"input", "change", "blur"} {
		if err := p.el.Dispatch(Event{Type: typ}); err != nil {
			return false
		}
	}
	return true
}

// Rich is the rich-editable variant.
type Rich struct {
	el RichElement
}

// NewRich wraps a contenteditable element.
func NewRich(el RichElement) *Rich { return &Rich{el: el} }

func (r *Rich) Kind() Kind { return KindRich }

// Read returns the visible text, trimmed.
func (r *Rich) Read() string { return strings.TrimSpace(r.el.Text()) }

func (r *Rich) SingleLine() bool { return false }

// Write first tries select-all + insertText so the editor's own undo stack and
// model stay in sync, then falls back to a synthesized paste.
func (r *Rich) Write(text string) bool {
	if r.insertNative(text) {
		return true
	}
	return r.insertSynthetic(text)
}

func (r *Rich) insertNative(text string) bool {
	r.el.Focus()
	if _, err := r.el.ExecCommand("selectAll", ""); err != nil {
		return false
	}
	ok, err := r.el.ExecCommand("insertText", text)
	return err == nil && ok
}

func (r *Rich) insertSynthetic(text string) bool {
	r.el.Focus()
	if err := r.el.Dispatch(Event{Type: "beforeinput", Data: text, InputType: "insertFromPaste"}); err != nil {
		return false
	}
	if err := r.el.Dispatch(Event{Type: "input", Data: text, InputType: "insertFromPaste"}); err != nil {
		return false
	}
	r.el.SetTextContent(text)
	for _, typ := range []string{"change", "blur"} {
		if err := r.el.Dispatch(Event{Type: typ}); err != nil {
			return false
		}
	}
	return true
}
