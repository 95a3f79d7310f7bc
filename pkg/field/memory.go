package field

import (
	"errors"
	"sync"
)

// ErrCommandUnavailable is returned by MemoryRich when native editing
// commands are switched off.
var ErrCommandUnavailable = errors.New("editing command unavailable")

// Op is one recorded element operation, in the order a host page must replay it.
type Op struct {
	Op      string `json:"op"` // "focus", "exec", "event", "set_value", "set_text"
	Command string `json:"command,omitempty"`
	Arg     string `json:"arg,omitempty"`
	Event   *Event `json:"event,omitempty"`
	Value   string `json:"value,omitempty"`
}

type recorder struct {
	mu      sync.Mutex
	ops     []Op
	failing map[string]bool
}

func (r *recorder) record(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

// Ops returns a copy of the recorded operations.
func (r *recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// FailEvents makes Dispatch fail for the given event types.
func (r *recorder) FailEvents(types ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing == nil {
		r.failing = make(map[string]bool)
	}
	for _, t := range types {
		r.failing[t] = true
	}
}

func (r *recorder) dispatch(e Event) error {
	r.mu.Lock()
	failing := r.failing[e.Type]
	r.mu.Unlock()
	if failing {
		return errors.New("dispatch " + e.Type + " rejected")
	}
	ev := e
	r.record(Op{Op: "event", Event: &ev})
	return nil
}

// MemoryInput is an in-memory InputElement.
type MemoryInput struct {
	recorder
	value     string
	multiline bool
}

// NewMemoryInput creates an input holding value. multiline makes it a textarea.
func NewMemoryInput(value string, multiline bool) *MemoryInput {
	return &MemoryInput{value: value, multiline: multiline}
}

func (m *MemoryInput) Value() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

func (m *MemoryInput) SetValue(v string) {
	m.mu.Lock()
	m.value = v
	m.mu.Unlock()
	m.record(Op{Op: "set_value", Value: v})
}

func (m *MemoryInput) Dispatch(e Event) error { return m.dispatch(e) }

func (m *MemoryInput) Multiline() bool { return m.multiline }

// MemoryRich is an in-memory RichElement.
type MemoryRich struct {
	recorder
	text   string
	native bool
}

// NewMemoryRich creates a rich element holding text. native enables
// selectAll/insertText; without it ExecCommand returns ErrCommandUnavailable.
func NewMemoryRich(text string, native bool) *MemoryRich {
	return &MemoryRich{text: text, native: native}
}

func (m *MemoryRich) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text
}

func (m *MemoryRich) Focus() { m.record(Op{Op: "focus"}) }

func (m *MemoryRich) ExecCommand(cmd, arg string) (bool, error) {
	if !m.native {
		return false, ErrCommandUnavailable
	}
	m.record(Op{Op: "exec", Command: cmd, Arg: arg})
	switch cmd {
	case "selectAll":
		return true, nil
	case "insertText":
		m.mu.Lock()
		m.text = arg
		m.mu.Unlock()
		return true, nil
	}
	return false, nil
}

func (m *MemoryRich) SetTextContent(text string) {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()
	m.record(Op{Op: "set_text", Value: text})
}

func (m *MemoryRich) Dispatch(e Event) error { return m.dispatch(e) }

// Recorder exposes the operations an in-memory element went through.
type Recorder interface {
	Ops() []Op
}

// FromDescriptor builds an in-memory target for a host-reported element.
// native tells whether the host supports execCommand editing. The returned
// recorder exposes the operations to replay.
func FromDescriptor(d Descriptor, text string, native bool) (Target, Recorder, bool) {
	kind, ok := Classify(d)
	if !ok {
		return nil, nil, false
	}
	if kind == KindPlain {
		el := NewMemoryInput(text, d.Multiline())
		return NewPlain(el), el, true
	}
	el := NewMemoryRich(text, native)
	return NewRich(el), el, true
}
