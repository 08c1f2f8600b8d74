package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hpungsan/roadmap/internal/errors"
)

func TestState_Stage(t *testing.T) {
	text := "plan"
	tests := []struct {
		name  string
		state State
		want  Stage
	}{
		{"fresh", State{}, StageNoRoadmap},
		{"generated", State{Roadmap: &text}, StagePendingReview},
		{"editing", State{Roadmap: &text, Editing: true}, StageEditing},
		{"final", State{Roadmap: &text, Final: true}, StageFinalized},
		{"final wins over editing", State{Roadmap: &text, Editing: true, Final: true}, StageFinalized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Stage(); got != tt.want {
				t.Errorf("Stage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestState_EmptyRoadmapCountsAsPresent(t *testing.T) {
	var s State
	s.SetRoadmap("")
	if !s.HasRoadmap() {
		t.Error("HasRoadmap() = false after storing an empty roadmap")
	}
	if s.Stage() != StagePendingReview {
		t.Errorf("Stage() = %q, want pending_review", s.Stage())
	}
}

func TestState_Clone(t *testing.T) {
	var s State
	s.SetRoadmap("original")
	c := s.Clone()
	*c.Roadmap = "changed"
	c.Editing = true

	if s.RoadmapText() != "original" || s.Editing {
		t.Errorf("Clone() shares memory with the original: %+v", s)
	}
}

func TestID(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Error("NewID() returned the same id twice")
	}
	if !ValidID(a) {
		t.Errorf("ValidID(%q) = false", a)
	}
	for _, bad := range []string{"", "not-a-ulid", "../../etc/passwd"} {
		if ValidID(bad) {
			t.Errorf("ValidID(%q) = true", bad)
		}
	}
}

func TestLocker_Serialises(t *testing.T) {
	l := NewLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock("same")
			defer unlock()
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxSeen != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxSeen)
	}
	if len(l.locks) != 0 {
		t.Errorf("locks not released: %d left", len(l.locks))
	}
}

func TestLocker_IndependentIDs(t *testing.T) {
	l := NewLocker()
	unlockA := l.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}

// storeContract runs the same checks against every Store implementation.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Load(ctx, "unknown")
	if err != nil {
		t.Fatalf("Load(unknown) error = %v", err)
	}
	if st.Stage() != StageNoRoadmap {
		t.Errorf("Load(unknown) stage = %q, want no_roadmap", st.Stage())
	}

	st.SetRoadmap("Week 1: optics")
	st.Editing = true
	if err := store.Save(ctx, "s1", st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Mutating after save must not leak into the store
	st.SetRoadmap("mutated")

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.RoadmapText() != "Week 1: optics" || !got.Editing || got.Final {
		t.Errorf("Load() = %+v", got)
	}

	// Sessions are isolated
	other, err := store.Load(ctx, "s2")
	if err != nil {
		t.Fatalf("Load(s2) error = %v", err)
	}
	if other.HasRoadmap() {
		t.Error("s2 sees s1's roadmap")
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	got, err = store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() after delete error = %v", err)
	}
	if got.HasRoadmap() {
		t.Error("Load() after delete still has roadmap")
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	storeContract(t, store)
	if store.Len() != 0 {
		t.Errorf("Len() = %d, want 0", store.Len())
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()
	storeContract(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	st := &State{Final: true}
	st.SetRoadmap("final plan")
	if err := store.Save(ctx, "s1", st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	store.Close()

	reopened, err := OpenSQLite(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Stage() != StageFinalized || got.RoadmapText() != "final plan" {
		t.Errorf("Load() after reopen = %+v", got)
	}
}

func TestSQLiteStore_PurgeIdle(t *testing.T) {
	store, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.Save(ctx, "s1", &State{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	n, err := store.PurgeIdle(ctx, time.Hour)
	if err != nil {
		t.Fatalf("PurgeIdle() error = %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d fresh sessions", n)
	}

	if _, err := store.PurgeIdle(ctx, 0); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("PurgeIdle(0) error = %v, want INVALID_REQUEST", err)
	}

	total, _, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}
