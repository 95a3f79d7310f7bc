package action

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"osmandlink/pkg/compose"
	"osmandlink/pkg/config"
	"osmandlink/pkg/field"
	"osmandlink/pkg/geocode"
	"osmandlink/pkg/picker"
	"osmandlink/pkg/tracker"
	"osmandlink/pkg/trigger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	berlinLink = "https://osmand.net/map?pin=52.517037,13.388860#17/52.517037/13.388860"
	nycLink    = "https://osmand.net/map?pin=40.712800,-74.006000#17/40.712800/-74.006000"
)

var berlin = geocode.Candidate{DisplayName: "Berlin, Deutschland", Lat: "52.5170368", Lon: "13.3888599"}

type fakeGeocoder struct {
	cands   []geocode.Candidate
	err     error
	panic   any
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int32
	query   atomic.Value
}

func (g *fakeGeocoder) Search(ctx context.Context, query string, limit int, cc string) ([]geocode.Candidate, error) {
	g.calls.Add(1)
	g.query.Store(query)
	if g.entered != nil {
		close(g.entered)
	}
	if g.release != nil {
		<-g.release
	}
	if g.panic != nil {
		panic(g.panic)
	}
	return g.cands, g.err
}

type fakeChooser struct {
	pick    int // -1 dismisses
	offered []geocode.Candidate
	calls   int
}

func (c *fakeChooser) Choose(_ context.Context, cands []geocode.Candidate) (geocode.Candidate, bool, error) {
	c.calls++
	c.offered = cands
	if c.pick < 0 {
		return geocode.Candidate{}, false, nil
	}
	return cands[c.pick], true, nil
}

type noticeLog struct {
	mu sync.Mutex
	ns []Notice
}

func (l *noticeLog) Notify(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ns = append(l.ns, n)
}

func (l *noticeLog) all() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notice(nil), l.ns...)
}

type fakeClipboard struct {
	mu  sync.Mutex
	got []string
	err error
}

func (c *fakeClipboard) WriteAll(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, s)
	return c.err
}

type fakePrompter struct {
	text string
	ok   bool
	msg  string
}

func (p *fakePrompter) PromptText(_ context.Context, msg string) (string, bool, error) {
	p.msg = msg
	return p.text, p.ok, nil
}

type harness struct {
	cfg     *config.Config
	el      *field.MemoryInput
	geo     *fakeGeocoder
	chooser *fakeChooser
	notices *noticeLog
	clip    *fakeClipboard
	busy    []bool
	tracker *tracker.Tracker
	orch    *Orchestrator
}

func newHarness(t *testing.T, text string, multiline bool, mutate func(*config.Config)) *harness {
	t.Helper()
	h := &harness{
		cfg:     config.DefaultConfig(),
		el:      field.NewMemoryInput(text, multiline),
		geo:     &fakeGeocoder{},
		chooser: &fakeChooser{},
		notices: &noticeLog{},
		clip:    &fakeClipboard{},
		tracker: tracker.New(),
	}
	if mutate != nil {
		mutate(h.cfg)
	}
	target := field.NewPlain(h.el)
	h.orch = New(h.cfg, Deps{
		Locator:   LocatorFunc(func() (field.Target, bool) { return target, true }),
		Geocoder:  h.geo,
		Chooser:   h.chooser,
		Clipboard: h.clip,
		Notifier:  h.notices,
		Busy:      func(b bool) { h.busy = append(h.busy, b) },
		Tracker:   h.tracker,
	})
	return h
}

func (h *harness) messages() []string {
	var out []string
	for _, n := range h.notices.all() {
		out = append(out, n.Message)
	}
	return out
}

func TestRun_CoordinatesSkipGeocoder(t *testing.T) {
	h := newHarness(t, "40.7128,-74.0060", true, nil)

	res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyNone})

	assert.Equal(t, OutcomeWritten, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, nycLink, h.el.Value())
	assert.Equal(t, int32(0), h.geo.calls.Load())
	assert.Equal(t, []string{MsgConverted}, h.messages())
	assert.NotEmpty(t, res.ID)
}

func TestRun_CoordinatesAsAddressLine(t *testing.T) {
	h := newHarness(t, "40.7128, -74.0060", true, func(c *config.Config) {
		c.Append.UseGeocoderAddress = false
		c.Append.AddressLabel = "Address: "
		c.Append.LinkLabel = "Map: "
	})

	res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyAddressAndLink})

	require.Equal(t, OutcomeWritten, res.Outcome)
	assert.Equal(t, "Address: 40.7128, -74.0060\nMap: "+nycLink, h.el.Value())
}

func TestRun_SingleCandidateBypassesChooser(t *testing.T) {
	h := newHarness(t, "Berlin", true, nil)
	h.geo.cands = []geocode.Candidate{berlin}

	res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyAddressAndLink})

	require.Equal(t, OutcomeWritten, res.Outcome)
	assert.Equal(t, 0, h.chooser.calls)
	assert.Equal(t, "Berlin, Deutschland\n"+berlinLink, h.el.Value())
	assert.Equal(t, res.Text, h.el.Value())
	assert.Equal(t, []string{MsgLookingUp, MsgSetLinkFor + "Berlin, Deutschland"}, h.messages())
}

func TestRun_VerbatimAddress(t *testing.T) {
	h := newHarness(t, "Berlin", true, func(c *config.Config) {
		c.Append.UseGeocoderAddress = false
	})
	h.geo.cands = []geocode.Candidate{berlin}

	h.orch.Run(context.Background(), Request{Policy: compose.PolicyAll})

	// Original and address are both the typed text.
	assert.Equal(t, "Berlin\nBerlin\n"+berlinLink, h.el.Value())
}

func TestRun_SingleLineField(t *testing.T) {
	h := newHarness(t, "Berlin", false, nil)
	h.geo.cands = []geocode.Candidate{berlin}

	h.orch.Run(context.Background(), Request{Policy: compose.PolicyAddressAndLink})

	assert.Equal(t, "Berlin, Deutschland — "+berlinLink, h.el.Value())
}

func TestRun_MultipleCandidates(t *testing.T) {
	h := newHarness(t, "Springfield", true, func(c *config.Config) {
		c.Geocoder.Limit = 2
	})
	h.geo.cands = []geocode.Candidate{
		{DisplayName: "Springfield, IL", Lat: "39.8", Lon: "-89.6"},
		berlin,
		{DisplayName: "Springfield, MO", Lat: "37.2", Lon: "-93.3"},
	}
	h.chooser.pick = 1

	res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyLink})

	require.Equal(t, OutcomeWritten, res.Outcome)
	assert.Equal(t, 1, h.chooser.calls)
	assert.Len(t, h.chooser.offered, 2, "excess candidates are dropped")
	assert.Equal(t, "Springfield\n"+berlinLink, h.el.Value())
}

func TestRun_ChoiceDismissed(t *testing.T) {
	h := newHarness(t, "Springfield", true, nil)
	h.geo.cands = []geocode.Candidate{berlin, berlin}
	h.chooser.pick = -1

	res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyAll})

	assert.Equal(t, OutcomeCancelled, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, "Springfield", h.el.Value())
	assert.Empty(t, h.el.Ops())
	assert.Equal(t, []string{MsgLookingUp}, h.messages(), "dismissal is silent")
	assert.False(t, h.orch.Busy())
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name    string
		cands   []geocode.Candidate
		err     error
		wantErr error
		wantMsg string
	}{
		{
			name:    "Zero Results",
			wantErr: ErrNoResult,
			wantMsg: MsgNoResult,
		},
		{
			name:    "Network Error",
			err:     fmt.Errorf("%w: HTTP 503", geocode.ErrNetwork),
			wantErr: geocode.ErrNetwork,
			wantMsg: MsgFailedPrefix + "geocoder network error: HTTP 503",
		},
		{
			name:    "Parse Error",
			err:     fmt.Errorf("%w: unexpected EOF", geocode.ErrParse),
			wantErr: geocode.ErrParse,
		},
		{
			name:    "Unusable Coordinates",
			cands:   []geocode.Candidate{{DisplayName: "Nowhere", Lat: "north", Lon: "1"}},
			wantErr: geocode.ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "somewhere", true, nil)
			h.geo.cands = tt.cands
			h.geo.err = tt.err

			res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyAll})

			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.ErrorIs(t, res.Err, tt.wantErr)
			assert.Equal(t, "somewhere", h.el.Value())
			assert.Empty(t, h.el.Ops(), "no write on failure")

			ns := h.notices.all()
			require.Len(t, ns, 2)
			assert.False(t, ns[1].OK)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, ns[1].Message)
			}
			assert.False(t, h.orch.Busy())
		})
	}
}

func TestRun_NoTarget(t *testing.T) {
	notices := &noticeLog{}
	o := New(config.DefaultConfig(), Deps{
		Locator:  LocatorFunc(func() (field.Target, bool) { return nil, false }),
		Geocoder: &fakeGeocoder{},
		Chooser:  &fakeChooser{},
		Notifier: notices,
	})

	res := o.Run(context.Background(), Request{})

	assert.ErrorIs(t, res.Err, ErrNoTarget)
	assert.Equal(t, []Notice{{Message: MsgNoTarget}}, notices.all())
}

func TestRun_EmptyInput(t *testing.T) {
	t.Run("No Prompter", func(t *testing.T) {
		h := newHarness(t, "   ", true, nil)

		res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyAll})

		assert.Equal(t, OutcomeSkipped, res.Outcome)
		assert.ErrorIs(t, res.Err, ErrEmptyInput)
		assert.Empty(t, h.messages())
		assert.Empty(t, h.el.Ops())
	})

	t.Run("Prompt Dismissed", func(t *testing.T) {
		h := newHarness(t, "", true, nil)
		p := &fakePrompter{ok: false}
		h.orch.deps.Prompter = p

		res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyAll})

		assert.Equal(t, OutcomeSkipped, res.Outcome)
		assert.Equal(t, MsgPromptAddress, p.msg)
		assert.Equal(t, int32(0), h.geo.calls.Load())
	})

	t.Run("Prompt Supplies Text", func(t *testing.T) {
		h := newHarness(t, "", true, nil)
		h.orch.deps.Prompter = &fakePrompter{text: "  Berlin ", ok: true}
		h.geo.cands = []geocode.Candidate{berlin}

		res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyAll})

		require.Equal(t, OutcomeWritten, res.Outcome)
		assert.Equal(t, "Berlin", h.geo.query.Load())
		assert.Equal(t, "Berlin, Deutschland\n"+berlinLink, h.el.Value())
	})
}

func TestRun_SecondTriggerWhileRunningIsRejected(t *testing.T) {
	h := newHarness(t, "Berlin", true, nil)
	h.geo.cands = []geocode.Candidate{berlin}
	h.geo.entered = make(chan struct{})
	h.geo.release = make(chan struct{})

	done := make(chan Result, 1)
	go func() {
		done <- h.orch.Run(context.Background(), Request{Policy: compose.PolicyLink})
	}()

	<-h.geo.entered
	assert.True(t, h.orch.Busy())

	second := h.orch.Run(context.Background(), Request{Policy: compose.PolicyAll})
	assert.Equal(t, OutcomeBusy, second.Outcome)
	assert.NoError(t, second.Err)

	close(h.geo.release)
	select {
	case res := <-done:
		assert.Equal(t, OutcomeWritten, res.Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("first run did not finish")
	}

	assert.False(t, h.orch.Busy())
	assert.Equal(t, int32(1), h.geo.calls.Load())
	assert.Equal(t, "Berlin\n"+berlinLink, h.el.Value(), "the first run's policy applies")

	outcomes := h.tracker.Outcomes()
	assert.Equal(t, int64(1), outcomes["written"])
	assert.Equal(t, int64(1), outcomes["busy"])
}

func TestRun_PanicReleasesLock(t *testing.T) {
	h := newHarness(t, "Berlin", true, nil)
	h.geo.panic = "boom"

	res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyAll})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, ErrPanic)
	assert.False(t, h.orch.Busy())
	assert.Equal(t, []bool{true, false}, h.busy)
	assert.Contains(t, h.messages(), MsgFailedPrefix+"boom")

	// The lock is usable again.
	h.geo.panic = nil
	h.geo.cands = []geocode.Candidate{berlin}
	assert.Equal(t, OutcomeWritten, h.orch.Run(context.Background(), Request{Policy: compose.PolicyAll}).Outcome)
}

func TestRun_ClipboardFallback(t *testing.T) {
	h := newHarness(t, "Berlin", true, nil)
	h.geo.cands = []geocode.Candidate{berlin}
	h.el.FailEvents("input")

	res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyAddressAndLink})

	assert.Equal(t, OutcomeClipboard, res.Outcome)
	want := "Berlin, Deutschland\n" + berlinLink
	assert.Equal(t, want, res.Text)
	assert.Equal(t, []string{"Berlin", want}, h.clip.got, "original kept first, then the final text")
	assert.Contains(t, h.messages(), MsgClipboardOnly)
}

func TestRun_ClipboardFallbackFails(t *testing.T) {
	h := newHarness(t, "Berlin", true, func(c *config.Config) {
		c.Clipboard.KeepOriginal = false
	})
	h.geo.cands = []geocode.Candidate{berlin}
	h.el.FailEvents("input")
	h.clip.err = errors.New("no display")

	res := h.orch.Run(context.Background(), Request{Policy: compose.PolicyLink})

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, field.ErrWriteFailed)
}

func TestRun_PolicyOverrideLeavesConfigAlone(t *testing.T) {
	h := newHarness(t, "Berlin", true, nil)
	before := h.cfg.Append
	h.geo.err = geocode.ErrNetwork

	h.orch.Run(context.Background(), h.orch.ForZone(trigger.ZoneLeft))
	h.orch.Run(context.Background(), Request{Policy: compose.PolicyAll})

	assert.Equal(t, before, h.cfg.Append)
	assert.Equal(t, compose.PolicyNone, h.orch.ForZone(trigger.ZoneLeft).Policy)
	assert.Equal(t, compose.PolicyAddressAndLink, h.orch.ForZone(trigger.ZoneRight).Policy)
}

func TestForKey(t *testing.T) {
	h := newHarness(t, "", true, nil)

	req, ok := h.orch.ForKey(trigger.KeyEvent{Key: "O", Alt: true})
	assert.True(t, ok)
	assert.Equal(t, compose.PolicyLink, req.Policy)

	_, ok = h.orch.ForKey(trigger.KeyEvent{Key: "o", Ctrl: true})
	assert.False(t, ok)
}

func TestRun_SharedLock(t *testing.T) {
	lock := &Lock{}
	require.True(t, lock.TryAcquire())

	o := New(config.DefaultConfig(), Deps{
		Lock:     lock,
		Locator:  LocatorFunc(func() (field.Target, bool) { return nil, false }),
		Geocoder: &fakeGeocoder{},
		Chooser:  picker.ChooserFunc(nil),
	})
	assert.Equal(t, OutcomeBusy, o.Run(context.Background(), Request{}).Outcome)

	lock.Release()
	assert.Equal(t, OutcomeFailed, o.Run(context.Background(), Request{}).Outcome)
}

func TestLock(t *testing.T) {
	var l Lock
	assert.False(t, l.Busy())
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	assert.True(t, l.Busy())
	l.Release()
	assert.True(t, l.TryAcquire())
}
