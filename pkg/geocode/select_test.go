package geocode

import (
	"context"
	"errors"
	"testing"
)

type stubFetcher struct {
	name  string
	err   error
	calls int
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) FetchJSON(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	s.calls++
	return []byte(`{}`), s.err
}

func TestSelectFetcher(t *testing.T) {
	down := errors.New("unreachable")

	tests := []struct {
		name      string
		mode      string
		queuedErr error
		directErr error
		want      string
	}{
		{name: "Forced Queued", mode: TransportQueued, queuedErr: down, want: "queued"},
		{name: "Forced Direct", mode: TransportDirect, want: "direct"},
		{name: "Auto Prefers Queued", mode: TransportAuto, want: "queued"},
		{name: "Auto Falls Back To Direct", mode: TransportAuto, queuedErr: down, want: "direct"},
		{name: "Auto Keeps Queued When All Fail", mode: TransportAuto, queuedErr: down, directErr: down, want: "queued"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &stubFetcher{name: "queued", err: tt.queuedErr}
			d := &stubFetcher{name: "direct", err: tt.directErr}
			got := SelectFetcher(context.Background(), tt.mode, "http://status.invalid/status", q, d)
			if got.Name() != tt.want {
				t.Errorf("SelectFetcher() = %s, want %s", got.Name(), tt.want)
			}
		})
	}
}

func TestSelectFetcher_NoProbeWhenForced(t *testing.T) {
	q := &stubFetcher{name: "queued"}
	d := &stubFetcher{name: "direct"}
	SelectFetcher(context.Background(), TransportDirect, "http://status.invalid/status", q, d)
	if q.calls+d.calls != 0 {
		t.Errorf("forced transport must not probe, got %d calls", q.calls+d.calls)
	}
}
