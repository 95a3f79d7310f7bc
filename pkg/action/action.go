// Package action runs one address-to-link conversion against the focused
// field: read, classify, geocode, choose, compose, write, report.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"osmandlink/pkg/compose"
	"osmandlink/pkg/config"
	"osmandlink/pkg/coords"
	"osmandlink/pkg/field"
	"osmandlink/pkg/geocode"
	"osmandlink/pkg/logging"
	"osmandlink/pkg/picker"
	"osmandlink/pkg/tracker"
	"osmandlink/pkg/trigger"
)

var (
	ErrNoTarget   = errors.New("no editable field focused")
	ErrEmptyInput = errors.New("no text to convert")
	ErrNoResult   = errors.New("no geocoding result")
	ErrPanic      = errors.New("action panicked")
)

// Notice texts shown to the user.
const (
	MsgNoTarget      = "No editable field focused."
	MsgLookingUp     = "Looking up address…"
	MsgNoResult      = "No geocoding result."
	MsgConverted     = "Converted coordinates → OsmAnd link"
	MsgSetLinkFor    = "Set link for:\n"
	MsgClipboardOnly = "Copied to clipboard (field not writable)"
	MsgFailedPrefix  = "Failed: "
	MsgPromptAddress = "Address to geocode for OsmAnd:"
)

// Outcome is how a run ended.
type Outcome string

const (
	OutcomeWritten   Outcome = "written"
	OutcomeClipboard Outcome = "clipboard"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeBusy      Outcome = "busy"
	OutcomeFailed    Outcome = "failed"
)

// Notice is a transient message for the user.
type Notice struct {
	Message string `json:"message"`
	OK      bool   `json:"ok"`
}

// Locator finds the field the action works on.
type Locator interface {
	Active() (field.Target, bool)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func() (field.Target, bool)

func (f LocatorFunc) Active() (field.Target, bool) { return f() }

// InputPrompter asks the user for one line of text. ok is false on dismissal.
type InputPrompter interface {
	PromptText(ctx context.Context, message string) (text string, ok bool, err error)
}

// Notifier shows notices.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Geocoder searches for an address.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int, countryCodes string) ([]geocode.Candidate, error)
}

// Deps are the collaborators of an Orchestrator. Locator, Geocoder, Chooser
// and Notifier are required.
type Deps struct {
	Lock      *Lock // shared between orchestrators; a private one is made if nil
	Locator   Locator
	Prompter  InputPrompter // optional; without it an empty field is skipped
	Geocoder  Geocoder
	Chooser   picker.Chooser
	Clipboard field.Clipboard // optional; keep-original and fallback delivery
	Notifier  Notifier
	Busy      func(bool) // optional busy indicator
	Tracker   *tracker.Tracker
}

// Request parameterizes one run.
type Request struct {
	ID     string // correlation id for logs; generated when empty
	Policy compose.Policy

	// Refresh, when set, replaces the target's content before it is read.
	// It is applied only once the lock is held.
	Refresh *string
}

// Refresher is a target whose content the host can resend with a trigger.
type Refresher interface {
	Refresh(text string)
}

// Result describes a finished run.
type Result struct {
	ID      string
	Outcome Outcome
	Text    string // final text written or copied
	Err     error
}

// Orchestrator drives runs. Its configuration is never modified; the
// per-run policy travels in the Request.
type Orchestrator struct {
	cfg    *config.Config
	deps   Deps
	writer *field.Writer
}

// New creates an Orchestrator.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	if deps.Lock == nil {
		deps.Lock = &Lock{}
	}
	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		writer: &field.Writer{
			Clipboard:          deps.Clipboard,
			KeepOriginal:       cfg.Clipboard.KeepOriginal,
			NewlineReplacement: cfg.Append.NewlineReplacement,
		},
	}
}

// Busy reports whether a run is in progress.
func (o *Orchestrator) Busy() bool {
	return o.deps.Lock.Busy()
}

// ForZone returns the request for a click on one half of the two-zone control.
func (o *Orchestrator) ForZone(z trigger.Zone) Request {
	return Request{Policy: z.Policy(o.cfg.Append.Left, o.cfg.Append.Right)}
}

// ForKey returns the hotkey request if e is the configured chord.
func (o *Orchestrator) ForKey(e trigger.KeyEvent) (Request, bool) {
	if !o.cfg.Hotkey.Matches(e) {
		return Request{}, false
	}
	return Request{Policy: o.cfg.Append.Hotkey}, true
}

// Run performs one action. A run started while another holds the lock
// returns OutcomeBusy at once. Every failure, including a panic, is turned
// into a notice and a failed Result; the lock is always released.
func (o *Orchestrator) Run(ctx context.Context, req Request) (res Result) {
	if !o.deps.Lock.TryAcquire() {
		slog.Debug("Action ignored (already running)")
		o.track(OutcomeBusy)
		return Result{ID: req.ID, Outcome: OutcomeBusy}
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	log := slog.With("action", req.ID, "policy", req.Policy)
	o.setBusy(true)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Action panicked", "panic", r, "stack", string(debug.Stack()))
			o.notify(Notice{Message: fmt.Sprintf("%s%v", MsgFailedPrefix, r)})
			res = Result{ID: req.ID, Outcome: OutcomeFailed, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
		o.setBusy(false)
		o.deps.Lock.Release()
		o.track(res.Outcome)
	}()

	res = o.run(ctx, req, log)
	res.ID = req.ID

	if res.Outcome == OutcomeFailed {
		log.Warn("Action failed", "error", res.Err)
		o.notify(failureNotice(res.Err))
	} else {
		log.Debug("Action finished", "outcome", res.Outcome)
	}
	return res
}

func (o *Orchestrator) run(ctx context.Context, req Request, log *slog.Logger) Result {
	target, ok := o.deps.Locator.Active()
	if !ok || target == nil {
		return failed(ErrNoTarget)
	}
	if req.Refresh != nil {
		if r, ok := target.(Refresher); ok {
			r.Refresh(*req.Refresh)
		}
	}

	original := target.Read()
	text := strings.TrimSpace(original)
	if text == "" {
		var err error
		if text, err = o.ask(ctx); err != nil {
			return failed(err)
		}
		if text == "" {
			log.Debug("Nothing to convert")
			return Result{Outcome: OutcomeSkipped, Err: ErrEmptyInput}
		}
	}
	log.Debug("Action triggered", "kind", target.Kind(), "text", text)

	builder := o.cfg.Builder()
	labels := o.cfg.Append.Labels()

	if cls := coords.Classify(text); cls.Kind == coords.Coordinates {
		address := text
		if o.cfg.Append.UseGeocoderAddress {
			address = ""
		}
		final := compose.Compose(compose.Input{
			Original: original,
			Address:  address,
			Link:     builder.Build(cls.Point),
		}, req.Policy, labels)
		return o.deliver(target, final, MsgConverted, log)
	}

	o.notify(Notice{Message: MsgLookingUp, OK: true})
	cands, err := o.deps.Geocoder.Search(ctx, text, o.cfg.Geocoder.Limit, o.cfg.Geocoder.CountryCodes)
	if err != nil {
		return failed(err)
	}
	if len(cands) == 0 {
		return failed(ErrNoResult)
	}

	chosen := cands[0]
	if len(cands) > 1 {
		c, ok, err := o.deps.Chooser.Choose(ctx, picker.Truncate(cands, o.cfg.Geocoder.Limit))
		if err != nil {
			return failed(err)
		}
		if !ok {
			log.Debug("Choice dismissed")
			return Result{Outcome: OutcomeCancelled}
		}
		chosen = c
	}

	pt, err := chosen.Point()
	if err != nil {
		return failed(err)
	}

	address := text
	if o.cfg.Append.UseGeocoderAddress {
		address = chosen.Label(text)
	}
	final := compose.Compose(compose.Input{
		Original: original,
		Address:  address,
		Link:     builder.Build(pt),
	}, req.Policy, labels)
	return o.deliver(target, final, MsgSetLinkFor+address, log)
}

func (o *Orchestrator) ask(ctx context.Context) (string, error) {
	if o.deps.Prompter == nil {
		return "", nil
	}
	text, ok, err := o.deps.Prompter.PromptText(ctx, MsgPromptAddress)
	if err != nil || !ok {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// deliver writes final into the target, falling back to the clipboard.
func (o *Orchestrator) deliver(target field.Target, final, success string, log *slog.Logger) Result {
	logging.Trace(log, "Composed text", "text", final, "kind", target.Kind())
	if o.writer.Write(target, final) {
		o.notify(Notice{Message: success, OK: true})
		return Result{Outcome: OutcomeWritten, Text: final}
	}

	log.Info("Field not writable, using clipboard")
	if o.deps.Clipboard == nil {
		return Result{Outcome: OutcomeFailed, Text: final, Err: field.ErrWriteFailed}
	}
	if err := o.deps.Clipboard.WriteAll(final); err != nil {
		return Result{Outcome: OutcomeFailed, Text: final, Err: fmt.Errorf("%w: clipboard: %v", field.ErrWriteFailed, err)}
	}
	o.notify(Notice{Message: MsgClipboardOnly, OK: true})
	return Result{Outcome: OutcomeClipboard, Text: final}
}

func failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}

func failureNotice(err error) Notice {
	switch {
	case errors.Is(err, ErrNoTarget):
		return Notice{Message: MsgNoTarget}
	case errors.Is(err, ErrNoResult):
		return Notice{Message: MsgNoResult}
	}
	return Notice{Message: MsgFailedPrefix + err.Error()}
}

func (o *Orchestrator) notify(n Notice) {
	if o.deps.Notifier != nil {
		o.deps.Notifier.Notify(n)
	}
}

func (o *Orchestrator) setBusy(b bool) {
	if o.deps.Busy != nil {
		o.deps.Busy(b)
	}
}

func (o *Orchestrator) track(out Outcome) {
	if o.deps.Tracker != nil && out != "" {
		o.deps.Tracker.TrackOutcome(string(out))
	}
}
