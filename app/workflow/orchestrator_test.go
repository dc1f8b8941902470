package workflow

import (
	"errors"
	"sync"
	"testing"
	"time"

	"shifa-quality/app/models"
)

func seedNonCompliantItem(m *Memstore) models.EvaluationResult {
	return m.SeedResult(models.EvaluationResult{
		RoundID:  "round-1",
		ItemSeq:  1,
		ItemText: "Hand hygiene station stocked",
		Outcome:  models.NonCompliant,
	})
}

func validInput(dept string) CreateCapaInput {
	target := time.Now().Add(14 * 24 * time.Hour)
	return CreateCapaInput{
		Title:        "X",
		DepartmentID: dept,
		Severity:     3,
		TargetDate:   &target,
	}
}

// --- MarkNeedsCapa ---

func TestMarkNeedsCapa_UnknownResult(t *testing.T) {
	orch := NewOrchestrator(NewMemstore(), NewMemstore())
	_, err := orch.MarkNeedsCapa("missing", true, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMarkNeedsCapa_CompliantItemRejected(t *testing.T) {
	store := NewMemstore()
	r := store.SeedResult(models.EvaluationResult{
		RoundID: "round-1", ItemSeq: 1, ItemText: "Item", Outcome: models.Compliant,
	})
	orch := NewOrchestrator(store, store)

	_, err := orch.MarkNeedsCapa(r.ID, true, nil)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	got, _ := store.GetResult(r.ID)
	if got.NeedsCapa {
		t.Error("needs_capa set on a compliant item")
	}
}

func TestMarkNeedsCapa_IdempotentAndUpdatesNote(t *testing.T) {
	store := NewMemstore()
	r := seedNonCompliantItem(store)
	orch := NewOrchestrator(store, store)

	first := "first note"
	if _, err := orch.MarkNeedsCapa(r.ID, true, &first); err != nil {
		t.Fatalf("first mark: %v", err)
	}

	second := "second note"
	got, err := orch.MarkNeedsCapa(r.ID, true, &second)
	if err != nil {
		t.Fatalf("repeated mark: %v", err)
	}
	if !got.NeedsCapa {
		t.Error("needs_capa lost on repeated mark")
	}
	if got.CapaNote == nil || *got.CapaNote != second {
		t.Errorf("note = %v, want %q", got.CapaNote, second)
	}
}

// --- RecordOutcome ---

// Re-evaluating a flagged item to compliant must clear the flag, so a
// compliant item never satisfies the needs-capa predicate.
func TestRecordOutcome_CompliantClearsNeedsCapa(t *testing.T) {
	store := NewMemstore()
	r := seedNonCompliantItem(store)
	if _, err := store.MarkNeedsCapa(r.ID, true, nil); err != nil {
		t.Fatalf("mark: %v", err)
	}

	got, err := store.RecordOutcome(r.ID, models.Compliant)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if got.Outcome != models.Compliant {
		t.Errorf("outcome = %s, want compliant", got.Outcome)
	}
	if got.NeedsCapa {
		t.Error("needs_capa survived re-evaluation to compliant")
	}

	items, err := store.GetItemsNeedingCapa(r.RoundID)
	if err != nil {
		t.Fatalf("get items: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items needing capa = %d, want 0 after re-evaluation", len(items))
	}
}

func TestRecordOutcome_NonCompliantKeepsFlag(t *testing.T) {
	store := NewMemstore()
	r := store.SeedResult(models.EvaluationResult{
		RoundID: "round-1", ItemSeq: 1, ItemText: "Item", Outcome: models.NotApplied,
	})
	if _, err := store.MarkNeedsCapa(r.ID, true, nil); err != nil {
		t.Fatalf("mark: %v", err)
	}

	got, err := store.RecordOutcome(r.ID, models.NonCompliant)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !got.NeedsCapa {
		t.Error("needs_capa cleared by a non-compliant re-evaluation")
	}
}

func TestRecordOutcome_UnknownOutcomeRejected(t *testing.T) {
	store := NewMemstore()
	r := seedNonCompliantItem(store)

	_, err := store.RecordOutcome(r.ID, models.ComplianceOutcome("bogus"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}

	got, _ := store.GetResult(r.ID)
	if got.Outcome != models.NonCompliant {
		t.Errorf("outcome = %s, want non_compliant unchanged", got.Outcome)
	}
}

func TestRecordOutcome_UnknownResult(t *testing.T) {
	store := NewMemstore()
	if _, err := store.RecordOutcome("missing", models.Compliant); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

// --- Create guards ---

func TestCreate_ValidationFailures(t *testing.T) {
	store := NewMemstore()

	cases := []struct {
		name string
		in   CreateCapaInput
	}{
		{"empty title", CreateCapaInput{DepartmentID: "d1", Severity: 3}},
		{"empty department", CreateCapaInput{Title: "X", Severity: 3}},
		{"severity too low", CreateCapaInput{Title: "X", DepartmentID: "d1", Severity: 0}},
		{"severity too high", CreateCapaInput{Title: "X", DepartmentID: "d1", Severity: 6}},
	}
	for _, tc := range cases {
		if _, err := store.Create(tc.in); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestCreate_PastTargetDateRejected(t *testing.T) {
	store := NewMemstore()
	in := validInput("d1")
	past := time.Now().Add(-time.Hour)
	in.TargetDate = &past
	if _, err := store.Create(in); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

// --- Composite mark-and-create ---

func TestMarkItemAndMaybeCreateCapa_EndToEnd(t *testing.T) {
	store := NewMemstore()
	r := seedNonCompliantItem(store)
	orch := NewOrchestrator(store, store)

	out, err := orch.MarkItemAndMaybeCreateCapa(r.ID, true, ptrInput(validInput("D")))
	if err != nil {
		t.Fatalf("composite op: %v", err)
	}
	if !out.Result.NeedsCapa {
		t.Error("result not flagged needs_capa")
	}
	if out.Capa == nil {
		t.Fatal("no capa created")
	}
	if out.Capa.Status != models.CapaPending {
		t.Errorf("capa status = %s, want pending", out.Capa.Status)
	}
	if out.Capa.OriginItemID == nil || *out.Capa.OriginItemID != r.ID {
		t.Error("capa not linked back to the origin item")
	}
	if out.Capa.OriginRoundID == nil || *out.Capa.OriginRoundID != r.RoundID {
		t.Error("capa not linked back to the origin round")
	}
	if out.Result.CapaID == nil || *out.Result.CapaID != out.Capa.ID {
		t.Error("result does not reference the new capa")
	}

	listed, err := store.List(CapaFilter{DepartmentID: "D"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].Title != "X" {
		t.Errorf("list by department = %v, want the created capa titled X", listed)
	}
}

func TestMarkItemAndMaybeCreateCapa_MarkOnly(t *testing.T) {
	store := NewMemstore()
	r := seedNonCompliantItem(store)
	orch := NewOrchestrator(store, store)

	out, err := orch.MarkItemAndMaybeCreateCapa(r.ID, false, nil)
	if err != nil {
		t.Fatalf("mark only: %v", err)
	}
	if out.Capa != nil {
		t.Error("capa created without create flag")
	}
	if !out.Result.NeedsCapa {
		t.Error("result not flagged")
	}
}

func TestMarkItemAndMaybeCreateCapa_SecondCreateIsDuplicate(t *testing.T) {
	store := NewMemstore()
	r := seedNonCompliantItem(store)
	orch := NewOrchestrator(store, store)

	if _, err := orch.MarkItemAndMaybeCreateCapa(r.ID, true, ptrInput(validInput("D"))); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := orch.MarkItemAndMaybeCreateCapa(r.ID, true, ptrInput(validInput("D")))
	if !errors.Is(err, ErrDuplicateCapa) {
		t.Fatalf("second create err = %v, want ErrDuplicateCapa", err)
	}
}

// Two racing creates for the same item: exactly one succeeds, the other
// observes the duplicate error.
func TestMarkItemAndMaybeCreateCapa_ConcurrentRace(t *testing.T) {
	store := NewMemstore()
	r := seedNonCompliantItem(store)
	orch := NewOrchestrator(store, store)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = orch.MarkItemAndMaybeCreateCapa(r.ID, true, ptrInput(validInput("D")))
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateCapa):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != 1 {
		t.Fatalf("got %d successes and %d duplicates, want 1 and 1", ok, dup)
	}

	capas, _ := store.List(CapaFilter{})
	if len(capas) != 1 {
		t.Fatalf("capa count = %d, want 1", len(capas))
	}
}

func TestCreateAfterCancel_Allowed(t *testing.T) {
	store := NewMemstore()
	r := seedNonCompliantItem(store)
	orch := NewOrchestrator(store, store)

	out, err := orch.MarkItemAndMaybeCreateCapa(r.ID, true, ptrInput(validInput("D")))
	if err != nil {
		t.Fatalf("first create: %v", err)
	}

	note := "raised in error"
	if _, err := store.Transition(out.Capa.ID, models.CapaCancelled, &note, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// A cancelled CAPA frees the item for a fresh corrective action.
	if _, err := orch.MarkItemAndMaybeCreateCapa(r.ID, true, ptrInput(validInput("D"))); err != nil {
		t.Fatalf("create after cancel: %v", err)
	}
}

// --- Transitions through the registry ---

func TestTransition_SkippingInProgressFails(t *testing.T) {
	store := NewMemstore()
	capa, err := store.Create(validInput("D"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	note := "done"
	_, err = store.Transition(capa.ID, models.CapaImplemented, &note, "")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	got, _ := store.Get(capa.ID)
	if got.Status != models.CapaPending {
		t.Errorf("status = %s, want pending unchanged", got.Status)
	}
}

func TestTransition_CancelWithoutNoteFails(t *testing.T) {
	store := NewMemstore()
	capa, _ := store.Create(validInput("D"))

	if _, err := store.Transition(capa.ID, models.CapaCancelled, nil, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	empty := "   "
	if _, err := store.Transition(capa.ID, models.CapaCancelled, &empty, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("blank note err = %v, want ErrValidation", err)
	}
}

func TestTransition_TerminalRejectsFurtherMoves(t *testing.T) {
	store := NewMemstore()
	capa, _ := store.Create(validInput("D"))

	note := "work"
	if _, err := store.Transition(capa.ID, models.CapaInProgress, nil, ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := store.Transition(capa.ID, models.CapaImplemented, &note, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	_, err := store.Transition(capa.ID, models.CapaInProgress, nil, "")
	if !errors.Is(err, ErrTerminalState) {
		t.Fatalf("err = %v, want ErrTerminalState", err)
	}
}

func TestTransition_FullLifecycleRecordsEvents(t *testing.T) {
	store := NewMemstore()
	capa, _ := store.Create(validInput("D"))

	hold := "awaiting parts"
	done := "verified fixed"
	steps := []struct {
		to   models.CapaStatus
		note *string
	}{
		{models.CapaInProgress, nil},
		{models.CapaOnHold, &hold},
		{models.CapaInProgress, nil},
		{models.CapaImplemented, &done},
	}
	for _, s := range steps {
		if _, err := store.Transition(capa.ID, s.to, s.note, "user-1"); err != nil {
			t.Fatalf("transition to %s: %v", s.to, err)
		}
	}

	events, err := store.Events(capa.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != len(steps) {
		t.Fatalf("event count = %d, want %d", len(events), len(steps))
	}
	if events[0].FromStatus != models.CapaPending || events[len(events)-1].ToStatus != models.CapaImplemented {
		t.Error("event chain does not cover pending through implemented")
	}
}

// --- AdvanceCapa permissions ---

func TestAdvanceCapa_PermissionDenied(t *testing.T) {
	store := NewMemstore()
	capa, _ := store.Create(validInput("D"))
	orch := NewOrchestrator(store, store)

	outsider := Actor{ID: "u1", Departments: []string{"other"}}
	_, err := orch.AdvanceCapa(capa.ID, models.CapaInProgress, nil, outsider)
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
}

func TestAdvanceCapa_DepartmentScopeAllows(t *testing.T) {
	store := NewMemstore()
	capa, _ := store.Create(validInput("D"))
	orch := NewOrchestrator(store, store)

	member := Actor{ID: "u1", Departments: []string{"D"}}
	got, err := orch.AdvanceCapa(capa.ID, models.CapaInProgress, nil, member)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got.Status != models.CapaInProgress {
		t.Errorf("status = %s, want in_progress", got.Status)
	}
}

func TestAdvanceCapa_SuperuserBypassesScope(t *testing.T) {
	store := NewMemstore()
	capa, _ := store.Create(validInput("D"))
	orch := NewOrchestrator(store, store)

	root := Actor{ID: "u1", Superuser: true}
	if _, err := orch.AdvanceCapa(capa.ID, models.CapaInProgress, nil, root); err != nil {
		t.Fatalf("superuser advance: %v", err)
	}
}

// --- GetItemsNeedingCapa ordering ---

func TestGetItemsNeedingCapa_OrderedAndFiltered(t *testing.T) {
	store := NewMemstore()
	store.SeedResult(models.EvaluationResult{RoundID: "r1", ItemSeq: 3, ItemText: "c", Outcome: models.NonCompliant})
	store.SeedResult(models.EvaluationResult{RoundID: "r1", ItemSeq: 1, ItemText: "a", Outcome: models.Compliant})
	flagged := store.SeedResult(models.EvaluationResult{RoundID: "r1", ItemSeq: 2, ItemText: "b", Outcome: models.NotApplied})
	store.SeedResult(models.EvaluationResult{RoundID: "r2", ItemSeq: 1, ItemText: "other round", Outcome: models.NonCompliant})

	if _, err := store.MarkNeedsCapa(flagged.ID, true, nil); err != nil {
		t.Fatalf("mark: %v", err)
	}

	items, err := store.GetItemsNeedingCapa("r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("count = %d, want 2", len(items))
	}
	if items[0].ItemSeq != 2 || items[1].ItemSeq != 3 {
		t.Errorf("order = [%d %d], want [2 3]", items[0].ItemSeq, items[1].ItemSeq)
	}
}

func TestGetItemsNeedingCapa_EmptyRoundIsNotAnError(t *testing.T) {
	store := NewMemstore()
	items, err := store.GetItemsNeedingCapa("no-such-round")
	if err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if len(items) != 0 {
		t.Fatalf("count = %d, want 0", len(items))
	}
}

func ptrInput(in CreateCapaInput) *CreateCapaInput {
	return &in
}
