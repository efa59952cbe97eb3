package hpo

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tunebench/hypertune/internal/space"
)

// runRound intensifies the round's challengers concurrently, at most
// parallelism ladders at a time. It returns the number of trials executed.
func (f *Facade) runRound(ctx context.Context, challengers []space.Configuration) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallelism)

	var trials atomic.Int64
	for _, cfg := range challengers {
		cfg := cfg
		g.Go(func() error {
			n, err := f.challenge(gctx, cfg)
			trials.Add(int64(n))
			return err
		})
	}

	err := g.Wait()
	// Cancellation ends the round without failing it; the incumbent
	// found so far stays valid.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		err = nil
	}
	return int(trials.Load()), err
}
