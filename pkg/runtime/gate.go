package runtime

import (
	"context"
	"fmt"

	db "github.com/TechXTT/webui"
	"golang.org/x/sync/semaphore"
)

// gate caps the number of outstanding leases. A nil gate admits everyone.
type gate struct {
	sem      *semaphore.Weighted
	failFast bool
}

func newGate(maxConns int, failFast bool) *gate {
	if maxConns <= 0 {
		return nil
	}
	return &gate{sem: semaphore.NewWeighted(int64(maxConns)), failFast: failFast}
}

// enter takes a slot. In fail-fast mode a full gate is reported as
// db.ErrPoolExhausted instead of waiting.
func (g *gate) enter(ctx context.Context) error {
	if g == nil {
		return nil
	}
	if g.failFast {
		if !g.sem.TryAcquire(1) {
			return db.ErrPoolExhausted
		}
		return nil
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for connection: %w", err)
	}
	return nil
}

func (g *gate) leave() {
	if g == nil {
		return
	}
	g.sem.Release(1)
}
