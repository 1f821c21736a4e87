package postgres

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/meditriage/triage-api/internal/config"
)

// schema is applied on every start. Statements are idempotent so a running
// deployment can restart against an existing database.
const schema = `
CREATE TABLE IF NOT EXISTS patients (
	id UUID PRIMARY KEY,
	code TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	age INT NOT NULL,
	gender TEXT NOT NULL,
	symptoms JSONB NOT NULL,
	pre_existing_conditions JSONB NOT NULL,
	heart_rate INT NOT NULL,
	bp_systolic INT NOT NULL,
	bp_diastolic INT NOT NULL,
	temperature DOUBLE PRECISION NOT NULL,
	spo2 INT NOT NULL,
	respiratory_rate INT NOT NULL,
	pain_score INT NOT NULL,
	chronic_disease_count INT NOT NULL,
	symptom_duration_hours DOUBLE PRECISION NOT NULL,
	risk_level TEXT NOT NULL,
	confidence_score DOUBLE PRECISION NOT NULL,
	prob_low DOUBLE PRECISION NOT NULL,
	prob_medium DOUBLE PRECISION NOT NULL,
	prob_high DOUBLE PRECISION NOT NULL,
	priority_score DOUBLE PRECISION NOT NULL,
	recommended_department TEXT NOT NULL,
	routed_department TEXT,
	routing_message TEXT,
	severity_timeline TEXT,
	alerts JSONB NOT NULL,
	status TEXT NOT NULL,
	discharged_at TIMESTAMPTZ,
	reasoning_summary TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_patients_status ON patients (status);

CREATE TABLE IF NOT EXISTS outbox_events (
	id UUID PRIMARY KEY,
	event_type TEXT NOT NULL,
	payload JSONB NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ,
	retry_count INT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_outbox_events_status_created
	ON outbox_events (status, created_at);
`

func NewDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return db, nil
}
