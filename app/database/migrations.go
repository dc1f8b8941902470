package database

import (
	"database/sql"
	"log"
)

// RunMigrations checks and applies necessary schema updates
func RunMigrations(db *sql.DB) error {
	log.Println("Running database migrations...")

	// 1. Core tables
	if err := createCoreTables(db); err != nil {
		return err
	}

	// 2. Unique guard: one non-cancelled CAPA per evaluation item
	if err := addCapaOriginItemGuard(db); err != nil {
		return err
	}

	// 3. Add severity column to capas if not exists (pre-severity installs)
	if err := addSeverityColumn(db); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createCoreTables(db *sql.DB) error {
	query := `
		CREATE EXTENSION IF NOT EXISTS "pgcrypto";

		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email TEXT UNIQUE NOT NULL,
			password TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			phone VARCHAR(20),
			is_active BOOLEAN DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS roles (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT UNIQUE NOT NULL,
			is_active BOOLEAN DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS user_roles (
			user_id UUID NOT NULL REFERENCES users(id),
			role_id UUID NOT NULL REFERENCES roles(id),
			PRIMARY KEY (user_id, role_id)
		);

		CREATE TABLE IF NOT EXISTS departments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT UNIQUE NOT NULL,
			code TEXT UNIQUE NOT NULL,
			description TEXT,
			head_user_id UUID REFERENCES users(id),
			is_active BOOLEAN DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS user_departments (
			user_id UUID NOT NULL REFERENCES users(id),
			department_id UUID NOT NULL REFERENCES departments(id),
			PRIMARY KEY (user_id, department_id)
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);

		CREATE TABLE IF NOT EXISTS rounds (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			department_id UUID REFERENCES departments(id),
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			scheduled_for DATE,
			created_by UUID REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS evaluation_results (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			round_id UUID NOT NULL REFERENCES rounds(id),
			item_seq INTEGER NOT NULL,
			item_text TEXT NOT NULL,
			outcome VARCHAR(20) NOT NULL DEFAULT 'not_applied',
			needs_capa BOOLEAN NOT NULL DEFAULT false,
			capa_note TEXT,
			capa_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (round_id, item_seq)
		);
		CREATE INDEX IF NOT EXISTS idx_evaluation_results_round ON evaluation_results(round_id);

		CREATE TABLE IF NOT EXISTS capas (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title TEXT NOT NULL,
			description TEXT,
			department_id UUID NOT NULL REFERENCES departments(id),
			origin_round_id UUID REFERENCES rounds(id),
			origin_item_id UUID REFERENCES evaluation_results(id),
			assignee_id UUID REFERENCES users(id),
			severity INTEGER NOT NULL DEFAULT 3,
			target_date DATE,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_capas_department ON capas(department_id);
		CREATE INDEX IF NOT EXISTS idx_capas_origin_round ON capas(origin_round_id);

		CREATE TABLE IF NOT EXISTS capa_events (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			capa_id UUID NOT NULL REFERENCES capas(id),
			from_status VARCHAR(20),
			to_status VARCHAR(20) NOT NULL,
			note TEXT,
			actor_id UUID REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_capa_events_capa ON capa_events(capa_id);
	`
	if _, err := db.Exec(query); err != nil {
		log.Printf("Failed to create core tables: %v", err)
		return err
	}
	return nil
}

// addCapaOriginItemGuard backs the duplicate-CAPA check with a partial unique
// index so a racing check-then-insert cannot double-create.
func addCapaOriginItemGuard(db *sql.DB) error {
	query := `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1
				FROM pg_indexes
				WHERE indexname = 'uq_capas_origin_item_active'
			) THEN
				CREATE UNIQUE INDEX uq_capas_origin_item_active
					ON capas(origin_item_id)
					WHERE origin_item_id IS NOT NULL AND status <> 'cancelled';
				RAISE NOTICE 'Added unique active-capa-per-item index';
			END IF;
		END $$;
	`
	if _, err := db.Exec(query); err != nil {
		log.Printf("Failed to run migration for capa origin item guard: %v", err)
		return err
	}
	return nil
}

func addSeverityColumn(db *sql.DB) error {
	query := `
		DO $$
		BEGIN
			IF NOT EXISTS (
				SELECT 1
				FROM information_schema.columns
				WHERE table_name = 'capas'
				AND column_name = 'severity'
			) THEN
				ALTER TABLE capas ADD COLUMN severity INTEGER NOT NULL DEFAULT 3;
				RAISE NOTICE 'Added severity column to capas';
			END IF;
		END $$;
	`
	if _, err := db.Exec(query); err != nil {
		log.Printf("Failed to run migration for severity column: %v", err)
		return err
	}
	return nil
}
