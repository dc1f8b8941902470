package workflow

import (
	"testing"
	"time"

	"shifa-quality/app/models"
)

func mustCreate(t *testing.T, store *Memstore, in CreateCapaInput) *models.Capa {
	t.Helper()
	c, err := store.Create(in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return c
}

func mustTransition(t *testing.T, store *Memstore, id string, to models.CapaStatus, note string) {
	t.Helper()
	var n *string
	if note != "" {
		n = &note
	}
	if _, err := store.Transition(id, to, n, ""); err != nil {
		t.Fatalf("transition to %s: %v", to, err)
	}
}

// forceTargetDate backdates a CAPA past its validation window so overdue
// classification can be exercised.
func forceTargetDate(store *Memstore, id string, target time.Time) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.capas[id].TargetDate = &target
}

func TestGlobalCapaStats_PartitionProperty(t *testing.T) {
	store := NewMemstore()
	agg := NewAggregator(store, store)
	now := time.Now()

	// pending (no target)
	mustCreate(t, store, CreateCapaInput{Title: "a", DepartmentID: "d1", Severity: 2})

	// in_progress
	b := mustCreate(t, store, CreateCapaInput{Title: "b", DepartmentID: "d1", Severity: 3})
	mustTransition(t, store, b.ID, models.CapaInProgress, "")

	// on_hold, target in the past: on_hold never classifies overdue
	c := mustCreate(t, store, CreateCapaInput{Title: "c", DepartmentID: "d2", Severity: 3})
	mustTransition(t, store, c.ID, models.CapaOnHold, "waiting")
	forceTargetDate(store, c.ID, now.Add(-48*time.Hour))

	// in_progress with past target: counts as overdue, not in_progress
	d := mustCreate(t, store, CreateCapaInput{Title: "d", DepartmentID: "d2", Severity: 4})
	mustTransition(t, store, d.ID, models.CapaInProgress, "")
	forceTargetDate(store, d.ID, now.Add(-24*time.Hour))

	// implemented with past target: terminal, never overdue
	e := mustCreate(t, store, CreateCapaInput{Title: "e", DepartmentID: "d1", Severity: 5})
	mustTransition(t, store, e.ID, models.CapaInProgress, "")
	mustTransition(t, store, e.ID, models.CapaImplemented, "fixed")
	forceTargetDate(store, e.ID, now.Add(-24*time.Hour))

	// cancelled
	f := mustCreate(t, store, CreateCapaInput{Title: "f", DepartmentID: "d2", Severity: 1})
	mustTransition(t, store, f.ID, models.CapaCancelled, "withdrawn")

	stats, err := agg.GlobalCapaStats(now)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	if stats.Total != 6 {
		t.Errorf("Total = %d, want 6", stats.Total)
	}
	sum := stats.Pending + stats.InProgress + stats.OnHold + stats.Overdue + stats.Implemented + stats.Cancelled
	if sum != stats.Total {
		t.Errorf("bucket sum = %d, want %d", sum, stats.Total)
	}
	if stats.Overdue != 1 {
		t.Errorf("Overdue = %d, want 1", stats.Overdue)
	}
	if stats.InProgress != 1 {
		t.Errorf("InProgress = %d, want 1 (overdue one must not double-count)", stats.InProgress)
	}
	if stats.Pending != 1 || stats.OnHold != 1 || stats.Implemented != 1 || stats.Cancelled != 1 {
		t.Errorf("buckets = %+v", stats)
	}
}

func TestListOverdueOnly(t *testing.T) {
	store := NewMemstore()
	now := time.Now()

	a := mustCreate(t, store, CreateCapaInput{Title: "a", DepartmentID: "d1", Severity: 3})
	forceTargetDate(store, a.ID, now.Add(-time.Hour))
	mustCreate(t, store, CreateCapaInput{Title: "b", DepartmentID: "d1", Severity: 3})

	overdue, err := store.List(CapaFilter{OverdueOnly: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != a.ID {
		t.Fatalf("overdue list = %v, want only the backdated capa", overdue)
	}
}

func TestRoundSummary(t *testing.T) {
	store := NewMemstore()
	agg := NewAggregator(store, store)
	orch := NewOrchestrator(store, store)

	r1 := store.SeedResult(models.EvaluationResult{RoundID: "r1", ItemSeq: 1, ItemText: "a", Outcome: models.NonCompliant})
	r2 := store.SeedResult(models.EvaluationResult{RoundID: "r1", ItemSeq: 2, ItemText: "b", Outcome: models.NonCompliant})
	store.SeedResult(models.EvaluationResult{RoundID: "r1", ItemSeq: 3, ItemText: "c", Outcome: models.Compliant})

	out1, err := orch.MarkItemAndMaybeCreateCapa(r1.ID, true, ptrInput(validInput("D")))
	if err != nil {
		t.Fatalf("create 1: %v", err)
	}
	if _, err := orch.MarkItemAndMaybeCreateCapa(r2.ID, true, ptrInput(validInput("D"))); err != nil {
		t.Fatalf("create 2: %v", err)
	}

	// Close out the first CAPA
	mustTransition(t, store, out1.Capa.ID, models.CapaInProgress, "")
	mustTransition(t, store, out1.Capa.ID, models.CapaImplemented, "done")

	summary, err := agg.RoundSummary("r1")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.ItemsNeedingCapa != 2 {
		t.Errorf("ItemsNeedingCapa = %d, want 2", summary.ItemsNeedingCapa)
	}
	if summary.CapasCreated != 2 {
		t.Errorf("CapasCreated = %d, want 2", summary.CapasCreated)
	}
	if summary.CapasOpen != 1 {
		t.Errorf("CapasOpen = %d, want 1", summary.CapasOpen)
	}
}

func TestRoundSummary_EmptyRound(t *testing.T) {
	store := NewMemstore()
	agg := NewAggregator(store, store)

	summary, err := agg.RoundSummary("empty")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.ItemsNeedingCapa != 0 || summary.CapasCreated != 0 || summary.CapasOpen != 0 {
		t.Errorf("summary = %+v, want zeroes", summary)
	}
}
