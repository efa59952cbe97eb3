package runhistory

import (
	"testing"
	"time"

	"github.com/tunebench/hypertune/internal/space"
	"github.com/tunebench/hypertune/internal/tae"
)

func makeTrial(id string, cost, budget float64, status tae.Status) *Trial {
	cfg := space.Configuration{"x": 1}
	return &Trial{
		ID:           id,
		ExperimentID: "exp-1",
		Config:       cfg,
		ConfigKey:    cfg.Key(),
		Seed:         0,
		Budget:       budget,
		Status:       status,
		Cost:         cost,
		RuntimeMs:    5,
	}
}

func TestStoreAddGet(t *testing.T) {
	s := NewStore()

	tr := makeTrial("t1", 0.5, 10, tae.StatusSuccess)
	if err := s.Add(tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}

	got, ok := s.Get("t1")
	if !ok || got.Cost != 0.5 {
		t.Fatalf("expected to get t1 back, got %+v", got)
	}

	if err := s.Add(makeTrial("t1", 0.1, 10, tae.StatusSuccess)); err == nil {
		t.Fatalf("expected duplicate ID error")
	}
	if err := s.Add(&Trial{}); err == nil {
		t.Fatalf("expected error for empty ID")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 trial, got %d", s.Len())
	}
}

func TestStoreList(t *testing.T) {
	s := NewStore()
	for i := 0; i < 10; i++ {
		tr := makeTrial(string(rune('a'+i)), float64(i), 10, tae.StatusSuccess)
		tr.CreatedAt = time.Now().UTC()
		if err := s.Add(tr); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	page := s.List(3, 0)
	if len(page) != 3 || page[0].ID != "a" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	page = s.List(3, 9)
	if len(page) != 1 || page[0].ID != "j" {
		t.Fatalf("unexpected last page: %+v", page)
	}
	if got := s.List(3, 100); got != nil {
		t.Fatalf("expected nil for out-of-range offset, got %+v", got)
	}
}

func TestStoreBest(t *testing.T) {
	s := NewStore()
	s.Add(makeTrial("t1", 0.9, 50, tae.StatusSuccess))
	s.Add(makeTrial("t2", 0.1, 5, tae.StatusSuccess))  // cheap budget, best raw cost
	s.Add(makeTrial("t3", 0.3, 50, tae.StatusSuccess)) // best at full budget
	s.Add(makeTrial("t4", 0.01, 50, tae.StatusTimeout))

	best := s.Best(50)
	if best == nil || best.ID != "t3" {
		t.Fatalf("expected t3 as best at budget 50, got %+v", best)
	}

	best = s.Best(0)
	if best == nil || best.ID != "t2" {
		t.Fatalf("expected t2 as best overall, got %+v", best)
	}

	if got := NewStore().Best(0); got != nil {
		t.Fatalf("expected nil for empty store")
	}
}

func TestIncumbentTrajectory(t *testing.T) {
	s := NewStore()

	t1 := makeTrial("t1", 0.9, 50, tae.StatusSuccess)
	t1.Incumbent = true
	t2 := makeTrial("t2", 0.8, 50, tae.StatusSuccess)
	t3 := makeTrial("t3", 0.3, 50, tae.StatusSuccess)
	t3.Incumbent = true
	for _, tr := range []*Trial{t1, t2, t3} {
		if err := s.Add(tr); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	traj := s.IncumbentTrajectory()
	if len(traj) != 2 || traj[0].ID != "t1" || traj[1].ID != "t3" {
		t.Fatalf("unexpected trajectory: %+v", traj)
	}
}

func TestCountByStatus(t *testing.T) {
	s := NewStore()
	s.Add(makeTrial("t1", 1, 10, tae.StatusSuccess))
	s.Add(makeTrial("t2", 1, 10, tae.StatusSuccess))
	s.Add(makeTrial("t3", 1, 10, tae.StatusTimeout))

	counts := s.CountByStatus()
	if counts[tae.StatusSuccess] != 2 || counts[tae.StatusTimeout] != 1 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
}
