// Package picker asks the user to pick one geocoding candidate.
package picker

import (
	"context"
	"errors"
	"sync"

	"osmandlink/pkg/geocode"
)

// ErrOutOfRange is returned by Pick for an index outside the offered list.
var ErrOutOfRange = errors.New("choice out of range")

// Chooser resolves a list of candidates to one selection. ok is false when
// the user dismissed the choice; that is not an error.
type Chooser interface {
	Choose(ctx context.Context, cands []geocode.Candidate) (c geocode.Candidate, ok bool, err error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, cands []geocode.Candidate) (geocode.Candidate, bool, error)

func (f ChooserFunc) Choose(ctx context.Context, cands []geocode.Candidate) (geocode.Candidate, bool, error) {
	return f(ctx, cands)
}

// Truncate drops candidates beyond max. A max of zero or less keeps all.
func Truncate(cands []geocode.Candidate, max int) []geocode.Candidate {
	if max > 0 && len(cands) > max {
		return cands[:max]
	}
	return cands
}

// Prompt is one pending choice. It resolves exactly once: the first Pick or
// Cancel wins and later calls are ignored.
type Prompt struct {
	cands []geocode.Candidate
	once  sync.Once
	done  chan int // chosen index, -1 for cancel
}

// NewPrompt opens a choice over cands.
func NewPrompt(cands []geocode.Candidate) *Prompt {
	return &Prompt{
		cands: cands,
		done:  make(chan int, 1),
	}
}

// Candidates returns the offered list.
func (p *Prompt) Candidates() []geocode.Candidate {
	return p.cands
}

// Pick resolves the prompt with the candidate at index i.
func (p *Prompt) Pick(i int) error {
	if i < 0 || i >= len(p.cands) {
		return ErrOutOfRange
	}
	p.resolve(i)
	return nil
}

// Cancel resolves the prompt as dismissed.
func (p *Prompt) Cancel() {
	p.resolve(-1)
}

func (p *Prompt) resolve(i int) {
	p.once.Do(func() {
		p.done <- i
	})
}

// Wait blocks until the prompt resolves. A done context counts as a dismissal
// so the waiting run always completes.
func (p *Prompt) Wait(ctx context.Context) (geocode.Candidate, bool) {
	select {
	case i := <-p.done:
		if i < 0 {
			return geocode.Candidate{}, false
		}
		return p.cands[i], true
	case <-ctx.Done():
		p.Cancel()
		return geocode.Candidate{}, false
	}
}
