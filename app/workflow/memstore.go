package workflow

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"shifa-quality/app/models"

	"github.com/google/uuid"
)

// Memstore is a mutex-guarded in-memory EvaluationStore and CapaRegistry.
// A single lock serializes all writes, which satisfies the per-record
// serialization the registry contract requires; reads copy records out so
// callers never share memory with the store.
type Memstore struct {
	mu      sync.RWMutex
	results map[string]*models.EvaluationResult
	capas   map[string]*models.Capa
	events  map[string][]models.CapaEvent

	// capaByItem indexes the non-cancelled CAPA linked to each origin
	// item. This is the duplicate-create guard.
	capaByItem map[string]string
}

// NewMemstore returns an empty in-memory store.
func NewMemstore() *Memstore {
	return &Memstore{
		results:    make(map[string]*models.EvaluationResult),
		capas:      make(map[string]*models.Capa),
		events:     make(map[string][]models.CapaEvent),
		capaByItem: make(map[string]string),
	}
}

// SeedResult inserts an evaluation result, minting an id if absent.
func (m *Memstore) SeedResult(r models.EvaluationResult) models.EvaluationResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = r.CreatedAt
	m.results[r.ID] = &r
	return r
}

func (m *Memstore) GetResult(resultID string) (*models.EvaluationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[resultID]
	if !ok {
		return nil, fmt.Errorf("%w: evaluation result %s", ErrNotFound, resultID)
	}
	out := *r
	return &out, nil
}

func (m *Memstore) ListByRound(roundID string) ([]models.EvaluationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.EvaluationResult, 0)
	for _, r := range m.results {
		if r.RoundID == roundID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemSeq < out[j].ItemSeq })
	return out, nil
}

func (m *Memstore) GetItemsNeedingCapa(roundID string) ([]models.EvaluationResult, error) {
	all, err := m.ListByRound(roundID)
	if err != nil {
		return nil, err
	}
	out := make([]models.EvaluationResult, 0)
	for _, r := range all {
		if r.NeedsCapa || r.Outcome == models.NonCompliant {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memstore) MarkNeedsCapa(resultID string, needsCapa bool, note *string) (*models.EvaluationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.results[resultID]
	if !ok {
		return nil, fmt.Errorf("%w: evaluation result %s", ErrNotFound, resultID)
	}
	if needsCapa && r.Outcome == models.Compliant {
		return nil, fmt.Errorf("%w: a compliant item cannot need a capa", ErrValidation)
	}
	r.NeedsCapa = needsCapa
	if note != nil {
		r.CapaNote = note
	}
	r.UpdatedAt = time.Now()
	out := *r
	return &out, nil
}

func (m *Memstore) RecordOutcome(resultID string, outcome models.ComplianceOutcome) (*models.EvaluationResult, error) {
	switch outcome {
	case models.Compliant, models.NotApplied, models.NonCompliant:
	default:
		return nil, fmt.Errorf("%w: unknown outcome %q", ErrValidation, outcome)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.results[resultID]
	if !ok {
		return nil, fmt.Errorf("%w: evaluation result %s", ErrNotFound, resultID)
	}
	r.Outcome = outcome
	if outcome == models.Compliant {
		r.NeedsCapa = false
	}
	r.UpdatedAt = time.Now()
	out := *r
	return &out, nil
}

func (m *Memstore) LinkCapa(resultID, capaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.results[resultID]
	if !ok {
		return fmt.Errorf("%w: evaluation result %s", ErrNotFound, resultID)
	}
	if r.CapaID != nil {
		// Only a cancelled CAPA frees the link for a replacement.
		if prev, ok := m.capas[*r.CapaID]; ok && prev.Status != models.CapaCancelled {
			return fmt.Errorf("%w: result %s already linked to capa %s", ErrDuplicateCapa, resultID, *r.CapaID)
		}
	}
	r.CapaID = &capaID
	r.UpdatedAt = time.Now()
	return nil
}

func (m *Memstore) Get(capaID string) (*models.Capa, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.capas[capaID]
	if !ok {
		return nil, fmt.Errorf("%w: capa %s", ErrNotFound, capaID)
	}
	out := *c
	return &out, nil
}

func (m *Memstore) Create(in CreateCapaInput) (*models.Capa, error) {
	now := time.Now()
	if err := in.Validate(now); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if in.OriginItemID != nil {
		itemID := *in.OriginItemID
		if _, ok := m.results[itemID]; !ok {
			return nil, fmt.Errorf("%w: evaluation result %s", ErrNotFound, itemID)
		}
		if existing, ok := m.capaByItem[itemID]; ok {
			return nil, fmt.Errorf("%w: item %s is linked to capa %s", ErrDuplicateCapa, itemID, existing)
		}
	}

	c := &models.Capa{
		ID:            uuid.New().String(),
		Title:         in.Title,
		Description:   in.Description,
		DepartmentID:  in.DepartmentID,
		OriginRoundID: in.OriginRoundID,
		OriginItemID:  in.OriginItemID,
		AssigneeID:    in.AssigneeID,
		Severity:      in.Severity,
		TargetDate:    in.TargetDate,
		Status:        models.CapaPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.capas[c.ID] = c
	if in.OriginItemID != nil {
		m.capaByItem[*in.OriginItemID] = c.ID
	}
	out := *c
	return &out, nil
}

func (m *Memstore) Transition(capaID string, to models.CapaStatus, note *string, actorID string) (*models.Capa, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.capas[capaID]
	if !ok {
		return nil, fmt.Errorf("%w: capa %s", ErrNotFound, capaID)
	}
	if err := CheckTransition(c, to, note); err != nil {
		return nil, err
	}

	ev := models.CapaEvent{
		ID:         uuid.New().String(),
		CapaID:     c.ID,
		FromStatus: c.Status,
		ToStatus:   to,
		Note:       note,
		CreatedAt:  time.Now(),
	}
	if actorID != "" {
		ev.ActorID = &actorID
	}

	c.Status = to
	c.UpdatedAt = ev.CreatedAt
	m.events[c.ID] = append(m.events[c.ID], ev)

	// A cancelled CAPA frees its item for a fresh corrective action.
	if to == models.CapaCancelled && c.OriginItemID != nil {
		delete(m.capaByItem, *c.OriginItemID)
	}

	out := *c
	return &out, nil
}

func (m *Memstore) List(filter CapaFilter) ([]models.Capa, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	out := make([]models.Capa, 0)
	for _, c := range m.capas {
		if filter.DepartmentID != "" && c.DepartmentID != filter.DepartmentID {
			continue
		}
		if filter.RoundID != "" && (c.OriginRoundID == nil || *c.OriginRoundID != filter.RoundID) {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if filter.OverdueOnly && models.Classify(c, now) != models.EffectiveOverdue {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memstore) Events(capaID string) ([]models.CapaEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.capas[capaID]; !ok {
		return nil, fmt.Errorf("%w: capa %s", ErrNotFound, capaID)
	}
	out := make([]models.CapaEvent, len(m.events[capaID]))
	copy(out, m.events[capaID])
	return out, nil
}
