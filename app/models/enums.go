package models

// ComplianceOutcome defines the possible outcomes of evaluating one checklist item.
type ComplianceOutcome string

const (
	Compliant    ComplianceOutcome = "compliant"
	NotApplied   ComplianceOutcome = "not_applied"
	NonCompliant ComplianceOutcome = "non_compliant"
)

// CapaStatus defines the stored status values of a CAPA record.
type CapaStatus string

const (
	CapaPending     CapaStatus = "pending"
	CapaInProgress  CapaStatus = "in_progress"
	CapaOnHold      CapaStatus = "on_hold"
	CapaImplemented CapaStatus = "implemented"
	CapaCancelled   CapaStatus = "cancelled"
)

// EffectiveStatus is the display-time classification of a CAPA: every stored
// status plus "overdue", which is never written to storage.
type EffectiveStatus string

const (
	EffectiveOverdue EffectiveStatus = "overdue"
)

// RoundStatus defines the lifecycle of an inspection round. The CAPA workflow
// reads round status but never changes it.
type RoundStatus string

const (
	RoundScheduled  RoundStatus = "scheduled"
	RoundInProgress RoundStatus = "in_progress"
	RoundCompleted  RoundStatus = "completed"
	RoundCancelled  RoundStatus = "cancelled"
)
