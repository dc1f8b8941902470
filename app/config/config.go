package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

type Config struct {
	DB *sql.DB
}

var AppConfig *Config

// InitDB loads the environment and opens the Postgres pool.
func InitDB() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var psqlInfo string
	if os.Getenv("LOCAL_DB") == "true" {
		psqlInfo = "host=localhost port=5432 user=postgres dbname=shifa_quality sslmode=disable"
		log.Println("Using local PostgreSQL database")
	} else {
		host := getEnv("DB_HOST", "localhost")
		port := getEnv("DB_PORT", "5432")
		user := getEnv("DB_USER", "postgres")
		password := os.Getenv("DB_PASSWORD")
		dbname := getEnv("DB_NAME", "shifa_quality")

		psqlInfo = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable connect_timeout=60",
			host, port, user, password, dbname)
		log.Printf("Attempting to connect to database at %s:%s", host, port)
	}

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		log.Fatal("Failed to open database connection:", err)
	}

	// Connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	log.Println("Testing database connection...")
	if err = db.Ping(); err != nil {
		log.Printf("Database connection failed: %v", err)
		log.Println("\n=== DATABASE CONNECTION FAILED ===")
		log.Println("To use a local PostgreSQL database:")
		log.Println("1. Install PostgreSQL locally")
		log.Println("2. Create database: createdb shifa_quality")
		log.Println("3. Run schema: psql -d shifa_quality -f schema.sql")
		log.Println("4. Set environment variable: export LOCAL_DB=true")
		log.Println("5. Run the application again")
		log.Fatal("Cannot establish database connection")
	}

	AppConfig = &Config{DB: db}
	log.Println("Database connected successfully")
}

func GetDB() *sql.DB {
	return AppConfig.DB
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
