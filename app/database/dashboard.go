package database

import (
	"database/sql"

	"shifa-quality/app/models"
)

// GetDashboardCounts returns the entity totals for the admin dashboard. CAPA
// buckets are computed by the workflow aggregator, not here, so overdue
// classification stays in one place.
func GetDashboardCounts(db *sql.DB) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{}

	// 1. Total rounds
	err := db.QueryRow("SELECT COUNT(*) FROM rounds").Scan(&stats.TotalRounds)
	if err != nil {
		return nil, err
	}

	// 2. Active rounds (scheduled or underway)
	err = db.QueryRow(`
		SELECT COUNT(*)
		FROM rounds
		WHERE status IN ('scheduled', 'in_progress')
	`).Scan(&stats.ActiveRounds)
	if err != nil {
		return nil, err
	}

	// 3. Active departments
	err = db.QueryRow("SELECT COUNT(*) FROM departments WHERE is_active = true").Scan(&stats.TotalDepartments)
	if err != nil {
		return nil, err
	}

	// 4. Active users
	err = db.QueryRow("SELECT COUNT(*) FROM users WHERE is_active = true").Scan(&stats.TotalUsers)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
