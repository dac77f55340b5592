package datahive

import (
	"context"
	"fmt"
	"sync"

	"noticerecon/pkg/platform/sentinel"
)

// Fake is an in-memory Gateway for tests.
type Fake struct {
	mu      sync.Mutex
	records map[string]Record
	down    bool
	calls   []string
}

var _ Gateway = (*Fake)(nil)

// NewFake constructs an empty fake gateway.
func NewFake() *Fake {
	return &Fake{records: make(map[string]Record)}
}

// Put seeds a record.
func (f *Fake) Put(rec Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.IDNo] = rec
}

// SetDown makes every Lookup fail with sentinel.ErrUnavailable.
func (f *Fake) SetDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

// Calls returns the identity numbers looked up so far, in order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *Fake) Lookup(_ context.Context, idNo string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, idNo)
	if f.down {
		return nil, fmt.Errorf("person lookup: %w", sentinel.ErrUnavailable)
	}
	rec, ok := f.records[idNo]
	if !ok {
		return nil, fmt.Errorf("person %q: %w", idNo, sentinel.ErrNotFound)
	}
	return &rec, nil
}
