package field

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eventTypes(ops []Op) []string {
	var out []string
	for _, op := range ops {
		if op.Op == "event" {
			out = append(out, op.Event.Type)
		}
	}
	return out
}

func TestPlain_Write(t *testing.T) {
	el := NewMemoryInput("old", false)
	p := NewPlain(el)

	assert.Equal(t, KindPlain, p.Kind())
	assert.True(t, p.SingleLine())
	assert.True(t, p.Write("new"))
	assert.Equal(t, "new", p.Read())

	ops := el.Ops()
	require.NotEmpty(t, ops)
	assert.Equal(t, "set_value", ops[0].Op, "value must be set before notifications")
	assert.Equal(t, []string{"input", "change", "blur"}, eventTypes(ops))
}

func TestPlain_DispatchFailure(t *testing.T) {
	el := NewMemoryInput("", true)
	el.FailEvents("change")
	assert.False(t, NewPlain(el).Write("x"))
}

func TestRich_NativeInsert(t *testing.T) {
	el := NewMemoryRich("  draft  ", true)
	r := NewRich(el)

	assert.Equal(t, "draft", r.Read(), "rich text is read trimmed")
	assert.False(t, r.SingleLine())
	assert.True(t, r.Write("line1\nline2"))
	assert.Equal(t, "line1\nline2", el.Text())

	ops := el.Ops()
	require.Len(t, ops, 3)
	assert.Equal(t, Op{Op: "focus"}, ops[0])
	assert.Equal(t, Op{Op: "exec", Command: "selectAll"}, ops[1])
	assert.Equal(t, Op{Op: "exec", Command: "insertText", Arg: "line1\nline2"}, ops[2])
	assert.Empty(t, eventTypes(ops), "native path fires no synthetic events")
}

func TestRich_SyntheticFallback(t *testing.T) {
	el := NewMemoryRich("draft", false)
	r := NewRich(el)

	assert.True(t, r.Write("replacement"))
	assert.Equal(t, "replacement", el.Text())
	assert.Equal(t, []string{"beforeinput", "input", "change", "blur"}, eventTypes(el.Ops()))

	for _, op := range el.Ops() {
		if op.Op == "event" && (op.Event.Type == "beforeinput" || op.Event.Type == "input") {
			assert.Equal(t, "replacement", op.Event.Data)
			assert.Equal(t, "insertFromPaste", op.Event.InputType)
		}
	}
}

func TestRich_AllPathsFail(t *testing.T) {
	el := NewMemoryRich("draft", false)
	el.FailEvents("beforeinput")
	assert.False(t, NewRich(el).Write("x"))
	assert.Equal(t, "draft", el.Text())
}

type fakeClipboard struct {
	got []string
	err error
}

func (f *fakeClipboard) WriteAll(text string) error {
	f.got = append(f.got, text)
	return f.err
}

func TestWriter(t *testing.T) {
	tests := []struct {
		name         string
		target       func() (Target, interface{ Read() string })
		keep         bool
		clipErr      error
		text         string
		wantText     string
		wantClipHist []string
	}{
		{
			name: "Single Line Input Replaces Newlines",
			target: func() (Target, interface{ Read() string }) {
				p := NewPlain(NewMemoryInput("Dinner", false))
				return p, p
			},
			keep:         true,
			text:         "Dinner\nhttps://x",
			wantText:     "Dinner — https://x",
			wantClipHist: []string{"Dinner"},
		},
		{
			name: "Textarea Keeps Newlines",
			target: func() (Target, interface{ Read() string }) {
				p := NewPlain(NewMemoryInput("", true))
				return p, p
			},
			keep:     true,
			text:     "a\nb",
			wantText: "a\nb",
		},
		{
			name: "Clipboard Failure Is Swallowed",
			target: func() (Target, interface{ Read() string }) {
				r := NewRich(NewMemoryRich("prev", true))
				return r, r
			},
			keep:         true,
			clipErr:      errors.New("no display"),
			text:         "a\nb",
			wantText:     "a\nb",
			wantClipHist: []string{"prev"},
		},
		{
			name: "Keep Original Disabled",
			target: func() (Target, interface{ Read() string }) {
				p := NewPlain(NewMemoryInput("prev", true))
				return p, p
			},
			text:     "x",
			wantText: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := &fakeClipboard{err: tt.clipErr}
			w := &Writer{Clipboard: clip, KeepOriginal: tt.keep, NewlineReplacement: " — "}
			target, reader := tt.target()

			assert.True(t, w.Write(target, tt.text))
			assert.Equal(t, tt.wantText, reader.Read())
			assert.Equal(t, tt.wantClipHist, clip.got)
		})
	}
}

func TestSystemClipboard(t *testing.T) {
	var got string
	orig := clipboardWriteAll
	clipboardWriteAll = func(s string) error { got = s; return nil }
	defer func() { clipboardWriteAll = orig }()

	require.NoError(t, SystemClipboard{}.WriteAll("copied"))
	assert.Equal(t, "copied", got)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
		want Kind
		ok   bool
	}{
		{"Input", Descriptor{Tag: "INPUT"}, KindPlain, true},
		{"Textarea", Descriptor{Tag: "textarea"}, KindPlain, true},
		{"Disabled Input", Descriptor{Tag: "input", Disabled: true}, "", false},
		{"Readonly Textarea", Descriptor{Tag: "textarea", ReadOnly: true}, "", false},
		{"Contenteditable Div", Descriptor{Tag: "div", ContentEditable: true}, KindRich, true},
		{"Textbox Role", Descriptor{Tag: "div", Role: "textbox"}, KindRich, true},
		{"Combobox Role", Descriptor{Tag: "span", Role: "Combobox"}, KindRich, true},
		{"Button", Descriptor{Tag: "button"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Classify(tt.d)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromDescriptor(t *testing.T) {
	target, rec, ok := FromDescriptor(Descriptor{Tag: "input"}, "hello", false)
	require.True(t, ok)
	assert.Equal(t, KindPlain, target.Kind())
	assert.True(t, target.SingleLine())
	assert.Equal(t, "hello", target.Read())
	assert.True(t, target.Write("bye"))
	assert.NotEmpty(t, rec.Ops())

	target, _, ok = FromDescriptor(Descriptor{Tag: "div", ContentEditable: true}, "rich", true)
	require.True(t, ok)
	assert.Equal(t, KindRich, target.Kind())

	_, _, ok = FromDescriptor(Descriptor{Tag: "a"}, "", true)
	assert.False(t, ok)
}
