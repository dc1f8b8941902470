package services

import (
	"database/sql"
	"log"
	"time"

	"shifa-quality/app/database"
	"shifa-quality/app/workflow"
)

// StartScheduler starts the background task scheduler
func StartScheduler(db *sql.DB) {
	go func() {
		log.Println("Scheduler started...")
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			now := time.Now()

			// Purge expired sessions at the top of every hour
			if now.Minute() == 0 {
				if n, err := database.DeleteExpiredSessions(db); err != nil {
					log.Printf("Error purging expired sessions: %v", err)
				} else if n > 0 {
					log.Printf("Purged %d expired sessions", n)
				}
			}

			// Overdue digest at 6:00 AM
			if now.Hour() == 6 && now.Minute() == 0 {
				log.Println("Running overdue CAPA digest [06:00]...")
				logOverdueDigest(db)
			}
		}
	}()
}

// logOverdueDigest logs overdue CAPA counts per department. Overdue is a
// read-time classification; the digest never writes status back.
func logOverdueDigest(db *sql.DB) {
	capas := database.NewCapaStore(db)
	overdue, err := capas.List(workflow.CapaFilter{OverdueOnly: true})
	if err != nil {
		log.Printf("Error listing overdue CAPAs: %v", err)
		return
	}
	if len(overdue) == 0 {
		log.Println("No overdue CAPAs")
		return
	}

	byDepartment := make(map[string]int)
	for _, c := range overdue {
		byDepartment[c.DepartmentID]++
	}
	log.Printf("Overdue CAPAs: %d total", len(overdue))
	for dept, count := range byDepartment {
		log.Printf("  department %s: %d overdue", dept, count)
	}
}
