package models

// CapaResponse extends the base Capa with display details resolved at query
// time, such as the effective (overdue-aware) status and joined names.
type CapaResponse struct {
	Capa
	EffectiveStatus EffectiveStatus `json:"effective_status"`
	DepartmentName  string          `json:"department_name,omitempty"`
	AssigneeName    string          `json:"assignee_name,omitempty"`
}

// DashboardStats is the admin dashboard payload: global CAPA buckets plus
// entity totals.
type DashboardStats struct {
	TotalRounds      int `json:"total_rounds"`
	ActiveRounds     int `json:"active_rounds"`
	TotalDepartments int `json:"total_departments"`
	TotalUsers       int `json:"total_users"`

	Capas CapaStats `json:"capas"`
}

// CapaStats buckets the current CAPA population by effective status. The six
// buckets partition Total: an overdue pending/in_progress CAPA is counted in
// Overdue only.
type CapaStats struct {
	Total       int `json:"total"`
	Pending     int `json:"pending"`
	InProgress  int `json:"in_progress"`
	OnHold      int `json:"on_hold"`
	Overdue     int `json:"overdue"`
	Implemented int `json:"implemented"`
	Cancelled   int `json:"cancelled"`
}

// RoundSummary is the per-round CAPA rollup shown on the round screen.
type RoundSummary struct {
	RoundID          string `json:"round_id"`
	ItemsNeedingCapa int    `json:"items_needing_capa"`
	CapasCreated     int    `json:"capas_created"`
	CapasOpen        int    `json:"capas_open"`
}
