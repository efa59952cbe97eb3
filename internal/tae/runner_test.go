package tae

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/pkg/config"
)

func TestRunSuccess(t *testing.T) {
	r := NewRunner(func(ctx context.Context, spec RunSpec) (float64, error) {
		return spec.Budget / 100, nil
	}, 0)

	res, err := r.Run(context.Background(), RunSpec{Budget: 50})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusSuccess {
		t.Fatalf("expected success, got %s", res.Status)
	}
	if res.Cost != 0.5 {
		t.Fatalf("expected cost 0.5, got %f", res.Cost)
	}
	if res.Runtime <= 0 {
		t.Fatalf("expected positive runtime")
	}
}

func TestRunPassesSpecThrough(t *testing.T) {
	var got RunSpec
	r := NewRunner(func(ctx context.Context, spec RunSpec) (float64, error) {
		got = spec
		return 0, nil
	}, 0)

	cfg := space.Configuration{"n_layer": 2}
	_, err := r.Run(context.Background(), RunSpec{Config: cfg, Instance: "1", Seed: 42, Budget: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Instance != "1" || got.Seed != 42 || got.Budget != 5 {
		t.Fatalf("spec not passed through: %+v", got)
	}
	if n, _ := got.Config.Int("n_layer"); n != 2 {
		t.Fatalf("config not passed through")
	}
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner(func(ctx context.Context, spec RunSpec) (float64, error) {
		select {
		case <-time.After(5 * time.Second):
			return 0, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}, 20*time.Millisecond)

	res, err := r.Run(context.Background(), RunSpec{Budget: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusTimeout {
		t.Fatalf("expected timeout, got %s", res.Status)
	}
	if res.Cost != DefaultPenaltyCost {
		t.Fatalf("expected penalty cost, got %f", res.Cost)
	}
}

func TestRunTargetError(t *testing.T) {
	r := NewRunner(func(ctx context.Context, spec RunSpec) (float64, error) {
		return 0, errors.New("fit diverged")
	}, 0).WithPenalty(100)

	res, err := r.Run(context.Background(), RunSpec{Budget: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusCrashed {
		t.Fatalf("expected crashed, got %s", res.Status)
	}
	if res.Cost != 100 {
		t.Fatalf("expected penalty 100, got %f", res.Cost)
	}
	if !strings.Contains(res.Error, "fit diverged") {
		t.Fatalf("expected error message, got %q", res.Error)
	}
}

func TestRunTargetPanic(t *testing.T) {
	r := NewRunner(func(ctx context.Context, spec RunSpec) (float64, error) {
		panic("index out of range")
	}, 0)

	res, err := r.Run(context.Background(), RunSpec{Budget: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusCrashed {
		t.Fatalf("expected crashed, got %s", res.Status)
	}
	if !strings.Contains(res.Error, "index out of range") {
		t.Fatalf("expected panic message, got %q", res.Error)
	}
}

func TestRunAbortedByParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(func(ctx context.Context, spec RunSpec) (float64, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}, time.Minute)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res, err := r.Run(ctx, RunSpec{Budget: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Status != StatusAborted {
		t.Fatalf("expected aborted, got %s", res.Status)
	}
}

func TestRunRuntimeObjective(t *testing.T) {
	r := NewRunner(func(ctx context.Context, spec RunSpec) (float64, error) {
		time.Sleep(10 * time.Millisecond)
		return 0.123, nil
	}, 0).WithRunObjective(config.RunObjectiveRuntime)

	res, err := r.Run(context.Background(), RunSpec{Budget: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Cost < 0.01 {
		t.Fatalf("expected runtime-based cost >= 10ms, got %f", res.Cost)
	}
	if res.Cost == 0.123 {
		t.Fatalf("runtime objective should not report target cost")
	}
}

func TestRunValidation(t *testing.T) {
	if _, err := NewRunner(nil, 0).Run(context.Background(), RunSpec{Budget: 1}); err == nil {
		t.Fatalf("expected error for nil target")
	}

	r := NewRunner(func(ctx context.Context, spec RunSpec) (float64, error) { return 0, nil }, 0)
	if _, err := r.Run(context.Background(), RunSpec{Budget: 0}); err == nil {
		t.Fatalf("expected error for zero budget")
	}
}
