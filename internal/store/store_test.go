package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/simulation"
)

func sampleResult(scenario string, created time.Time) Result {
	return Result{
		CreatedAt:        created,
		Source:           "cli",
		Scenario:         scenario,
		Label:            "Label " + scenario,
		SystemComplexity: 0.85,
		EngineeringRigor: 0.3,
		StartValue:       8,
		NChanges:         3,
		FailureThreshold: 3,
		Runs:             10,
		Seed:             ^uint64(0), // exercises the high bit
		DurationMS:       5,
		Stats: simulation.Stats{
			AverageFinal:         6.5,
			AverageMin:           5.9,
			FailureRate:          0.1,
			AverageTrajectory:    []float64{8, 7.5, 7, 6.5},
			P10Trajectory:        []float64{8, 7, 6.2, 5.5},
			P90Trajectory:        []float64{8, 8, 7.8, 7.4},
			AverageTotalTime:     4.2,
			AverageTimePerChange: 1.4,
			BaselineTime:         3,
			TimeOverheadPercent:  40,
		},
	}
}

// storeContract runs the behavior every ResultStore must share.
func storeContract(t *testing.T, s ResultStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	handoff := sampleResult("ai-handoff", base.Add(time.Hour))
	handoff.Phases = []simulation.PhaseConfig{
		{NChanges: 1, StartValue: 8, EngineeringRigor: 0.3},
		{NChanges: 2, EngineeringRigor: 0.8},
	}
	handoff.Source = "http"

	id1, err := s.Save(ctx, sampleResult("ai-vibe", base))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id1 == "" {
		t.Fatal("expected generated ID")
	}
	id2, err := s.Save(ctx, handoff)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	fixed := sampleResult("senior-engineers", base.Add(2*time.Hour))
	fixed.ID = "fixed-id"
	id3, err := s.Save(ctx, fixed)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if id3 != "fixed-id" {
		t.Errorf("Save returned %q, want caller ID", id3)
	}

	got, err := s.Get(ctx, id2)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Scenario != "ai-handoff" || got.Source != "http" {
		t.Errorf("unexpected result: %+v", got)
	}
	if !got.CreatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base.Add(time.Hour))
	}
	if got.Seed != ^uint64(0) {
		t.Errorf("Seed = %d, want max uint64", got.Seed)
	}
	if len(got.Phases) != 2 || got.Phases[1].EngineeringRigor != 0.8 {
		t.Errorf("Phases = %+v", got.Phases)
	}
	if len(got.Stats.P90Trajectory) != 4 || got.Stats.P90Trajectory[3] != 7.4 {
		t.Errorf("P90Trajectory = %v", got.Stats.P90Trajectory)
	}
	if got.Stats.TimeOverheadPercent != 40 {
		t.Errorf("TimeOverheadPercent = %v, want 40", got.Stats.TimeOverheadPercent)
	}

	all, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d results, want 3", len(all))
	}
	if all[0].ID != "fixed-id" || all[2].ID != id1 {
		t.Errorf("List not newest first: %v, %v, %v", all[0].ID, all[1].ID, all[2].ID)
	}
	if all[1].AverageFinal != 6.5 || all[1].FailureRate != 0.1 {
		t.Errorf("summary stats = %+v", all[1])
	}

	filtered, err := s.List(ctx, ListOptions{Scenario: "ai-vibe"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != id1 {
		t.Errorf("scenario filter returned %+v", filtered)
	}

	bySource, _ := s.List(ctx, ListOptions{Source: "http"})
	if len(bySource) != 1 || bySource[0].ID != id2 {
		t.Errorf("source filter returned %+v", bySource)
	}

	recent, _ := s.List(ctx, ListOptions{Since: base.Add(90 * time.Minute)})
	if len(recent) != 1 || recent[0].ID != "fixed-id" {
		t.Errorf("since filter returned %+v", recent)
	}

	limited, _ := s.List(ctx, ListOptions{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("limit returned %d results, want 2", len(limited))
	}

	every, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(every) != 3 || every[0].ID != id1 {
		t.Errorf("All not oldest first: %+v", every)
	}

	if err := s.Delete(ctx, id1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, id1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, id1); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestInMemoryResultStore(t *testing.T) {
	storeContract(t, NewInMemoryResultStore())
}

func TestSQLiteResultStore(t *testing.T) {
	s, err := NewSQLiteResultStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteResultStore failed: %v", err)
	}
	defer s.Close()
	storeContract(t, s)
}

func TestSQLiteResultStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewSQLiteResultStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.Save(ctx, sampleResult("ai-vibe", time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = NewSQLiteResultStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.Stats.AverageFinal != 6.5 {
		t.Errorf("AverageFinal = %v, want 6.5", got.Stats.AverageFinal)
	}
}

func TestInMemoryResultStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryResultStore()
	id, _ := s.Save(ctx, sampleResult("ai-vibe", time.Now()))

	got, _ := s.Get(ctx, id)
	got.Stats.AverageTrajectory[0] = -1

	again, _ := s.Get(ctx, id)
	if again.Stats.AverageTrajectory[0] != 8 {
		t.Error("mutating a returned result changed the stored copy")
	}
}

func TestMultiResultStore(t *testing.T) {
	ctx := context.Background()
	local := NewInMemoryResultStore()
	global := NewInMemoryResultStore()
	m := NewMultiResultStore(local, global, constants.ScopeLocal)

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	localID, err := m.Save(ctx, sampleResult("ai-vibe", base))
	if err != nil {
		t.Fatal(err)
	}
	globalID, err := global.Save(ctx, sampleResult("senior-engineers", base.Add(time.Minute)))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := local.Get(ctx, localID); err != nil {
		t.Errorf("expected write to local store: %v", err)
	}

	got, err := m.Get(ctx, globalID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Scope != constants.ScopeGlobal {
		t.Errorf("Scope = %q, want global", got.Scope)
	}

	list, err := m.List(ctx, ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].ID != globalID || list[0].Scope != constants.ScopeGlobal || list[1].Scope != constants.ScopeLocal {
		t.Errorf("unexpected merged list: %+v", list)
	}

	if err := m.Delete(ctx, globalID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := global.Get(ctx, globalID); !errors.Is(err, ErrNotFound) {
		t.Error("expected global result to be deleted")
	}
	if err := m.Delete(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete missing: err = %v, want ErrNotFound", err)
	}

	gm := NewMultiResultStore(local, global, constants.ScopeGlobal)
	id, _ := gm.Save(ctx, sampleResult("ai-guardrails", base))
	if _, err := global.Get(ctx, id); err != nil {
		t.Errorf("expected write to global store: %v", err)
	}
	if err := gm.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestOpenScoped(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USERPROFILE", os.Getenv("HOME"))

	local, err := OpenScoped(root, constants.ScopeLocal)
	if err != nil {
		t.Fatalf("OpenScoped(local): %v", err)
	}
	id, err := local.Save(ctx, sampleResult("ai-vibe", time.Now()))
	if err != nil {
		t.Fatal(err)
	}
	local.Close()

	if _, err := os.Stat(DBPath(LocalPath(root))); err != nil {
		t.Errorf("local database not created: %v", err)
	}

	both, err := OpenScoped(root, constants.ScopeBoth)
	if err != nil {
		t.Fatalf("OpenScoped(both): %v", err)
	}
	defer both.Close()
	got, err := both.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get through both scopes: %v", err)
	}
	if got.Scope != constants.ScopeLocal {
		t.Errorf("Scope = %q, want local", got.Scope)
	}

	if _, err := OpenScoped(root, constants.Scope("nowhere")); err == nil {
		t.Error("expected error for invalid scope")
	}
}

func TestLocalPath(t *testing.T) {
	if got := LocalPath("/repo"); got != "/repo/.phsim" {
		t.Errorf("LocalPath = %q", got)
	}
	if got := DBPath("/repo/.phsim"); got != "/repo/.phsim/history.db" {
		t.Errorf("DBPath = %q", got)
	}
}
