package workflow

import (
	"time"

	"shifa-quality/app/models"
)

// Aggregator derives dashboard projections from the current store and
// registry population. Nothing is cached; every call rescans so the numbers
// can never go stale.
type Aggregator struct {
	Evaluations EvaluationStore
	Capas       CapaRegistry
}

// NewAggregator wires the aggregator over its two stores.
func NewAggregator(evals EvaluationStore, capas CapaRegistry) *Aggregator {
	return &Aggregator{Evaluations: evals, Capas: capas}
}

// RoundSummary rolls up one round: items flagged for corrective action, CAPAs
// raised from the round, and how many of those are still open. Open means the
// stored status is non-terminal, so no clock is involved.
func (g *Aggregator) RoundSummary(roundID string) (*models.RoundSummary, error) {
	needing, err := g.Evaluations.GetItemsNeedingCapa(roundID)
	if err != nil {
		return nil, err
	}
	capas, err := g.Capas.List(CapaFilter{RoundID: roundID})
	if err != nil {
		return nil, err
	}

	summary := &models.RoundSummary{
		RoundID:          roundID,
		ItemsNeedingCapa: len(needing),
		CapasCreated:     len(capas),
	}
	for i := range capas {
		if !capas[i].Status.Terminal() {
			summary.CapasOpen++
		}
	}
	return summary, nil
}

// GlobalCapaStats buckets every CAPA by its effective status at now. The
// buckets partition the total: a pending or in-progress CAPA past its target
// date is counted as overdue and nowhere else.
func (g *Aggregator) GlobalCapaStats(now time.Time) (*models.CapaStats, error) {
	capas, err := g.Capas.List(CapaFilter{})
	if err != nil {
		return nil, err
	}

	stats := &models.CapaStats{Total: len(capas)}
	for i := range capas {
		switch models.Classify(&capas[i], now) {
		case models.EffectiveOverdue:
			stats.Overdue++
		case models.EffectiveStatus(models.CapaPending):
			stats.Pending++
		case models.EffectiveStatus(models.CapaInProgress):
			stats.InProgress++
		case models.EffectiveStatus(models.CapaOnHold):
			stats.OnHold++
		case models.EffectiveStatus(models.CapaImplemented):
			stats.Implemented++
		case models.EffectiveStatus(models.CapaCancelled):
			stats.Cancelled++
		}
	}
	return stats, nil
}
