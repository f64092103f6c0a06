package keywords

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Accumulator is the growing set of contextual keywords for one orchestrator.
// Terms are only ever added.
type Accumulator struct {
	extractor Extractor

	mu    sync.Mutex
	terms map[string]struct{}
}

// NewAccumulator creates an empty accumulator backed by extractor
func NewAccumulator(extractor Extractor) *Accumulator {
	return &Accumulator{
		extractor: extractor,
		terms:     make(map[string]struct{}),
	}
}

// Update extracts keywords from sentence, unions them into the set and
// returns the full sorted set. Scores are discarded; case is preserved.
func (a *Accumulator) Update(ctx context.Context, sentence string) ([]string, error) {
	found, err := a.extractor.Extract(ctx, sentence)
	if err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, kw := range found {
		if kw.Term == "" {
			continue
		}
		a.terms[kw.Term] = struct{}{}
	}
	return a.sortedLocked(), nil
}

// Len returns the number of accumulated terms
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.terms)
}

// Terms returns a sorted copy of the accumulated terms
func (a *Accumulator) Terms() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sortedLocked()
}

func (a *Accumulator) sortedLocked() []string {
	out := make([]string, 0, len(a.terms))
	for t := range a.terms {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
