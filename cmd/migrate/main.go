package main

import (
	"database/sql"
	"log"
	"os"

	"shifa-quality/app/config"
	"shifa-quality/app/database"
)

func main() {
	log.Println("Starting manual migration...")

	config.InitDB()
	db := config.GetDB()
	if db == nil {
		log.Fatal("Failed to get database instance")
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Migrations failed:", err)
	}

	// Apply the full schema file if present (fresh installs)
	executeSQLFile(db, "schema.sql")

	log.Println("Manual migration completed successfully!")
}

func executeSQLFile(db *sql.DB, filePath string) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		log.Printf("Skipping %s: %v", filePath, err)
		return
	}

	log.Printf("Executing %s...", filePath)
	if _, err := db.Exec(string(content)); err != nil {
		log.Printf("Error executing %s: %v", filePath, err)
	} else {
		log.Printf("Successfully executed %s", filePath)
	}
}
