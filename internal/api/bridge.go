package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"osmandlink/pkg/action"
	"osmandlink/pkg/config"
	"osmandlink/pkg/field"
	"osmandlink/pkg/geocode"
	"osmandlink/pkg/picker"
	"osmandlink/pkg/tracker"
	"osmandlink/pkg/trigger"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
)

// Client → server message types.
const (
	msgFocus   = "focus"
	msgBlur    = "blur"
	msgTrigger = "trigger"
	msgChoose  = "choose"
	msgCancel  = "cancel"
	msgInput   = "input"
)

// Server → client message types.
const (
	msgHello     = "hello"
	msgChoices   = "choose"
	msgBusy      = "busy"
	msgNotice    = "notice"
	msgPrompt    = "prompt"
	msgWrite     = "write"
	msgClipboard = "clipboard"
	msgDone      = "done"
	msgError     = "error"
)

// ClientMessage is one message from the host page.
type ClientMessage struct {
	Type    string            `json:"type"`
	FieldID string            `json:"field_id,omitempty"`
	Field   *field.Descriptor `json:"field,omitempty"`
	Text    *string           `json:"text,omitempty"`
	Native  bool              `json:"native,omitempty"` // page supports execCommand editing
	Zone    trigger.Zone      `json:"zone,omitempty"`
	X       float64           `json:"x,omitempty"` // pointer offset, used when zone is empty
	Width   float64           `json:"width,omitempty"`
	Key     *trigger.KeyEvent `json:"key,omitempty"`
	Index   int               `json:"index,omitempty"`
	OK      bool              `json:"ok,omitempty"`
}

// ServerMessage is one message to the host page.
type ServerMessage struct {
	Type       string         `json:"type"`
	Session    string         `json:"session,omitempty"`
	Action     string         `json:"action,omitempty"`
	Hotkey     string         `json:"hotkey,omitempty"`
	Busy       bool           `json:"busy,omitempty"`
	Message    string         `json:"message,omitempty"`
	OK         bool           `json:"ok,omitempty"`
	Candidates []CandidateDTO `json:"candidates,omitempty"`
	FieldID    string         `json:"field_id,omitempty"`
	Ops        []field.Op     `json:"ops,omitempty"`
	Text       string         `json:"text,omitempty"`
	Outcome    string         `json:"outcome,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// CandidateDTO is a geocoding candidate offered for choice.
type CandidateDTO struct {
	Label string `json:"label"`
	Lat   string `json:"lat"`
	Lon   string `json:"lon"`
}

// BridgeHandler serves the host-page WebSocket at /ws.
type BridgeHandler struct {
	cfg      *config.Config
	lock     *action.Lock
	geocoder action.Geocoder
	tracker  *tracker.Tracker
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
	wg       sync.WaitGroup
}

// NewBridgeHandler creates the bridge. All sessions share lock.
func NewBridgeHandler(cfg *config.Config, lock *action.Lock, g action.Geocoder, tr *tracker.Tracker) *BridgeHandler {
	return &BridgeHandler{
		cfg:      cfg,
		lock:     lock,
		geocoder: g,
		tracker:  tr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The host is an arbitrary web page talking to localhost.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
	}
}

// SessionCount returns the number of open sessions.
func (h *BridgeHandler) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Busy reports whether any session is running an action.
func (h *BridgeHandler) Busy() bool {
	return h.lock.Busy()
}

func (h *BridgeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "bridge closed", http.StatusServiceUnavailable)
		return
	}
	h.wg.Add(1)
	h.mu.Unlock()
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	s := h.newSession(conn)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.close()
		return
	}
	h.sessions[s.id] = s
	h.mu.Unlock()

	slog.Info("Bridge session opened", "session", s.id, "remote", r.RemoteAddr)
	s.serve()

	h.mu.Lock()
	delete(h.sessions, s.id)
	h.mu.Unlock()
	slog.Info("Bridge session closed", "session", s.id)
}

// Close ends every session and waits for their runs to finish. Later
// connections are refused.
func (h *BridgeHandler) Close() {
	h.mu.Lock()
	h.closed = true
	for _, s := range h.sessions {
		s.close()
	}
	h.mu.Unlock()
	h.wg.Wait()
}

func (h *BridgeHandler) newSession(conn *websocket.Conn) *session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.NewString(),
		conn:   conn,
		ctx:    ctx,
		cancel: cancel,
	}
	s.orch = action.New(h.cfg, action.Deps{
		Lock:      h.lock,
		Locator:   action.LocatorFunc(s.active),
		Prompter:  s,
		Geocoder:  h.geocoder,
		Chooser:   s,
		Clipboard: sessionClipboard{s},
		Notifier:  action.NotifierFunc(s.notify),
		Busy:      s.busy,
		Tracker:   h.tracker,
	})
	s.hotkey = h.cfg.Hotkey.String()
	return s
}

// session is one connected host page.
type session struct {
	id     string
	conn   *websocket.Conn
	orch   *action.Orchestrator
	hotkey string

	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup

	writeMu sync.Mutex

	mu      sync.Mutex
	focused *bridgeTarget
	choice  *picker.Prompt
	input   *inputPrompt
}

func (s *session) serve() {
	defer s.conn.Close()
	defer s.runs.Wait()
	defer s.cancel()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.send(ServerMessage{Type: msgHello, Session: s.id, Hotkey: s.hotkey}); err != nil {
		return
	}

	for {
		var msg ClientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				_ = s.send(ServerMessage{Type: msgError, Error: "malformed message"})
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Bridge read ended", "session", s.id, "error", err)
			}
			return
		}
		s.handle(msg)
	}
}

func (s *session) close() {
	s.cancel()
	s.writeMu.Lock()
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	s.conn.Close()
}

func (s *session) handle(msg ClientMessage) {
	switch msg.Type {
	case msgFocus:
		s.focus(msg)
	case msgBlur:
		s.mu.Lock()
		if s.focused != nil && (msg.FieldID == "" || msg.FieldID == s.focused.id) {
			s.focused = nil
		}
		s.mu.Unlock()
	case msgTrigger:
		s.trigger(msg)
	case msgChoose:
		s.mu.Lock()
		p := s.choice
		s.mu.Unlock()
		if p == nil {
			return
		}
		if err := p.Pick(msg.Index); err != nil {
			_ = s.send(ServerMessage{Type: msgError, Error: err.Error()})
		}
	case msgCancel:
		s.mu.Lock()
		p, in := s.choice, s.input
		s.mu.Unlock()
		if p != nil {
			p.Cancel()
		}
		if in != nil {
			in.resolve("", false)
		}
	case msgInput:
		s.mu.Lock()
		in := s.input
		s.mu.Unlock()
		if in != nil {
			text := ""
			if msg.Text != nil {
				text = *msg.Text
			}
			in.resolve(text, msg.OK)
		}
	default:
		_ = s.send(ServerMessage{Type: msgError, Error: "unknown message type " + msg.Type})
	}
}

func (s *session) focus(msg ClientMessage) {
	if msg.Field == nil {
		_ = s.send(ServerMessage{Type: msgError, Error: "focus without field"})
		return
	}
	text := ""
	if msg.Text != nil {
		text = *msg.Text
	}
	t, ok := newBridgeTarget(s, msg.FieldID, *msg.Field, text, msg.Native)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.focused = nil
		return
	}
	s.focused = t
}

func (s *session) trigger(msg ClientMessage) {
	var req action.Request
	switch {
	case msg.Key != nil:
		r, ok := s.orch.ForKey(*msg.Key)
		if !ok {
			return
		}
		req = r
	case msg.Zone != "":
		req = s.orch.ForZone(msg.Zone)
	case msg.Width > 0:
		req = s.orch.ForZone(trigger.ZoneAt(msg.X, msg.Width))
	default:
		req = s.orch.ForZone(trigger.ZoneRight)
	}

	// The page may resend the field text; the run applies it under the lock.
	req.Refresh = msg.Text

	req.ID = uuid.NewString()
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		res := s.orch.Run(s.ctx, req)
		done := ServerMessage{Type: msgDone, Action: res.ID, Outcome: string(res.Outcome), Text: res.Text}
		if res.Err != nil {
			done.Error = res.Err.Error()
		}
		_ = s.send(done)
	}()
}

func (s *session) active() (field.Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.focused == nil {
		return nil, false
	}
	return s.focused, true
}

func (s *session) notify(n action.Notice) {
	_ = s.send(ServerMessage{Type: msgNotice, Message: n.Message, OK: n.OK})
}

func (s *session) busy(b bool) {
	_ = s.send(ServerMessage{Type: msgBusy, Busy: b})
}

// Choose implements picker.Chooser over the socket.
func (s *session) Choose(ctx context.Context, cands []geocode.Candidate) (geocode.Candidate, bool, error) {
	p := picker.NewPrompt(cands)
	s.mu.Lock()
	s.choice = p
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.choice == p {
			s.choice = nil
		}
		s.mu.Unlock()
	}()

	dtos := make([]CandidateDTO, 0, len(cands))
	for _, c := range cands {
		dtos = append(dtos, CandidateDTO{Label: c.Label(""), Lat: string(c.Lat), Lon: string(c.Lon)})
	}
	if err := s.send(ServerMessage{Type: msgChoices, Candidates: dtos}); err != nil {
		return geocode.Candidate{}, false, err
	}

	c, ok := p.Wait(ctx)
	return c, ok, nil
}

// PromptText implements action.InputPrompter over the socket.
func (s *session) PromptText(ctx context.Context, message string) (string, bool, error) {
	in := newInputPrompt()
	s.mu.Lock()
	s.input = in
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.input == in {
			s.input = nil
		}
		s.mu.Unlock()
	}()

	if err := s.send(ServerMessage{Type: msgPrompt, Message: message}); err != nil {
		return "", false, err
	}

	select {
	case r := <-in.done:
		return r.text, r.ok, nil
	case <-ctx.Done():
		in.resolve("", false)
		return "", false, nil
	}
}

func (s *session) send(m ServerMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	if err := s.conn.WriteJSON(m); err != nil {
		slog.Debug("Bridge write failed", "session", s.id, "type", m.Type, "error", err)
		return err
	}
	return nil
}

// sessionClipboard hands clipboard text to the page.
type sessionClipboard struct{ s *session }

func (c sessionClipboard) WriteAll(text string) error {
	return c.s.send(ServerMessage{Type: msgClipboard, Text: text})
}

// inputPrompt is one pending text prompt; the first answer wins.
type inputPrompt struct {
	once sync.Once
	done chan inputReply
}

type inputReply struct {
	text string
	ok   bool
}

func newInputPrompt() *inputPrompt {
	return &inputPrompt{done: make(chan inputReply, 1)}
}

func (p *inputPrompt) resolve(text string, ok bool) {
	p.once.Do(func() { p.done <- inputReply{text: text, ok: ok} })
}

// bridgeTarget is the page's focused field mirrored in memory. A successful
// write is forwarded to the page as the ops it must replay.
type bridgeTarget struct {
	s      *session
	id     string
	desc   field.Descriptor
	native bool

	mu     sync.Mutex
	target field.Target
	rec    field.Recorder
}

func newBridgeTarget(s *session, id string, d field.Descriptor, text string, native bool) (*bridgeTarget, bool) {
	t, rec, ok := field.FromDescriptor(d, text, native)
	if !ok {
		return nil, false
	}
	return &bridgeTarget{s: s, id: id, desc: d, native: native, target: t, rec: rec}, true
}

// Refresh replaces the mirrored content with what the page reports.
func (b *bridgeTarget) Refresh(text string) {
	t, rec, _ := field.FromDescriptor(b.desc, text, b.native)
	b.mu.Lock()
	b.target, b.rec = t, rec
	b.mu.Unlock()
}

func (b *bridgeTarget) current() field.Target {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.target
}

func (b *bridgeTarget) Kind() field.Kind { return b.current().Kind() }
func (b *bridgeTarget) Read() string     { return b.current().Read() }
func (b *bridgeTarget) SingleLine() bool { return b.current().SingleLine() }

func (b *bridgeTarget) Write(text string) bool {
	b.mu.Lock()
	t, rec := b.target, b.rec
	b.mu.Unlock()

	before := len(rec.Ops())
	if !t.Write(text) {
		return false
	}
	ops := rec.Ops()[before:]
	return b.s.send(ServerMessage{Type: msgWrite, FieldID: b.id, Ops: ops}) == nil
}
