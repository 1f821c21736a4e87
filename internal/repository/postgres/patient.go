package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/repository"
)

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

// patientRow flattens the record for sqlx; list fields are stored as JSONB.
type patientRow struct {
	ID                    uuid.UUID      `db:"id"`
	Code                  string         `db:"code"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
	Age                   int            `db:"age"`
	Gender                string         `db:"gender"`
	SymptomsJSON          []byte         `db:"symptoms"`
	ConditionsJSON        []byte         `db:"pre_existing_conditions"`
	HeartRate             int            `db:"heart_rate"`
	SystolicBP            int            `db:"bp_systolic"`
	DiastolicBP           int            `db:"bp_diastolic"`
	Temperature           float64        `db:"temperature"`
	SpO2                  int            `db:"spo2"`
	RespiratoryRate       int            `db:"respiratory_rate"`
	PainScore             int            `db:"pain_score"`
	ChronicDiseaseCount   int            `db:"chronic_disease_count"`
	SymptomDurationHours  float64        `db:"symptom_duration_hours"`
	RiskLevel             string         `db:"risk_level"`
	ConfidenceScore       float64        `db:"confidence_score"`
	ProbLow               float64        `db:"prob_low"`
	ProbMedium            float64        `db:"prob_medium"`
	ProbHigh              float64        `db:"prob_high"`
	PriorityScore         float64        `db:"priority_score"`
	RecommendedDepartment string         `db:"recommended_department"`
	RoutedDepartment      sql.NullString `db:"routed_department"`
	RoutingMessage        sql.NullString `db:"routing_message"`
	SeverityTimeline      sql.NullString `db:"severity_timeline"`
	AlertsJSON            []byte         `db:"alerts"`
	Status                string         `db:"status"`
	DischargedAt          sql.NullTime   `db:"discharged_at"`
	ReasoningSummary      string         `db:"reasoning_summary"`
}

func (r *patientRepository) Save(ctx context.Context, rec *model.PatientRecord) error {
	row, err := toRow(rec)
	if err != nil {
		return fmt.Errorf("failed to encode patient: %w", err)
	}

	query := `
		INSERT INTO patients (
			id, code, created_at, updated_at, age, gender, symptoms,
			pre_existing_conditions, heart_rate, bp_systolic, bp_diastolic,
			temperature, spo2, respiratory_rate, pain_score,
			chronic_disease_count, symptom_duration_hours, risk_level,
			confidence_score, prob_low, prob_medium, prob_high, priority_score,
			recommended_department, routed_department, routing_message,
			severity_timeline, alerts, status, discharged_at, reasoning_summary
		) VALUES (
			:id, :code, :created_at, :updated_at, :age, :gender, :symptoms,
			:pre_existing_conditions, :heart_rate, :bp_systolic, :bp_diastolic,
			:temperature, :spo2, :respiratory_rate, :pain_score,
			:chronic_disease_count, :symptom_duration_hours, :risk_level,
			:confidence_score, :prob_low, :prob_medium, :prob_high, :priority_score,
			:recommended_department, :routed_department, :routing_message,
			:severity_timeline, :alerts, :status, :discharged_at, :reasoning_summary
		)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			age = EXCLUDED.age,
			gender = EXCLUDED.gender,
			symptoms = EXCLUDED.symptoms,
			pre_existing_conditions = EXCLUDED.pre_existing_conditions,
			heart_rate = EXCLUDED.heart_rate,
			bp_systolic = EXCLUDED.bp_systolic,
			bp_diastolic = EXCLUDED.bp_diastolic,
			temperature = EXCLUDED.temperature,
			spo2 = EXCLUDED.spo2,
			respiratory_rate = EXCLUDED.respiratory_rate,
			pain_score = EXCLUDED.pain_score,
			chronic_disease_count = EXCLUDED.chronic_disease_count,
			symptom_duration_hours = EXCLUDED.symptom_duration_hours,
			risk_level = EXCLUDED.risk_level,
			confidence_score = EXCLUDED.confidence_score,
			prob_low = EXCLUDED.prob_low,
			prob_medium = EXCLUDED.prob_medium,
			prob_high = EXCLUDED.prob_high,
			priority_score = EXCLUDED.priority_score,
			recommended_department = EXCLUDED.recommended_department,
			routed_department = EXCLUDED.routed_department,
			routing_message = EXCLUDED.routing_message,
			severity_timeline = EXCLUDED.severity_timeline,
			alerts = EXCLUDED.alerts,
			status = EXCLUDED.status,
			discharged_at = EXCLUDED.discharged_at,
			reasoning_summary = EXCLUDED.reasoning_summary
	`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to save patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.PatientRecord, error) {
	var row patientRow
	if err := r.db.GetContext(ctx, &row, `SELECT * FROM patients WHERE id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return fromRow(&row)
}

func (r *patientRepository) ListActive(ctx context.Context) ([]*model.PatientRecord, error) {
	return r.list(ctx, `SELECT * FROM patients WHERE status != $1 ORDER BY created_at`, string(model.PatientStatusDischarged))
}

func (r *patientRepository) ListAll(ctx context.Context) ([]*model.PatientRecord, error) {
	return r.list(ctx, `SELECT * FROM patients ORDER BY created_at`)
}

func (r *patientRepository) list(ctx context.Context, query string, args ...interface{}) ([]*model.PatientRecord, error) {
	var rows []patientRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	out := make([]*model.PatientRecord, 0, len(rows))
	for i := range rows {
		rec, err := fromRow(&rows[i])
		if err != nil {
			return nil, fmt.Errorf("failed to decode patient %s: %w", rows[i].ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRow(rec *model.PatientRecord) (*patientRow, error) {
	symptoms, err := json.Marshal(rec.Symptoms)
	if err != nil {
		return nil, err
	}
	conditions, err := json.Marshal(rec.PreExistingConditions)
	if err != nil {
		return nil, err
	}
	alerts, err := json.Marshal(rec.Alerts)
	if err != nil {
		return nil, err
	}

	row := &patientRow{
		ID:                    rec.ID,
		Code:                  rec.Code,
		CreatedAt:             rec.CreatedAt,
		UpdatedAt:             rec.UpdatedAt,
		Age:                   rec.Age,
		Gender:                string(rec.Gender),
		SymptomsJSON:          symptoms,
		ConditionsJSON:        conditions,
		HeartRate:             rec.HeartRate,
		SystolicBP:            rec.SystolicBP,
		DiastolicBP:           rec.DiastolicBP,
		Temperature:           rec.Temperature,
		SpO2:                  rec.SpO2,
		RespiratoryRate:       rec.RespiratoryRate,
		PainScore:             rec.PainScore,
		ChronicDiseaseCount:   rec.ChronicDiseaseCount,
		SymptomDurationHours:  rec.SymptomDurationHours,
		RiskLevel:             string(rec.RiskLevel),
		ConfidenceScore:       rec.ConfidenceScore,
		ProbLow:               rec.Probabilities.Low,
		ProbMedium:            rec.Probabilities.Medium,
		ProbHigh:              rec.Probabilities.High,
		PriorityScore:         rec.PriorityScore,
		RecommendedDepartment: rec.RecommendedDepartment,
		AlertsJSON:            alerts,
		Status:                string(rec.Status),
		ReasoningSummary:      rec.ReasoningSummary,
	}
	if rec.RoutedDepartment != nil {
		row.RoutedDepartment = sql.NullString{String: *rec.RoutedDepartment, Valid: true}
	}
	if rec.RoutingMessage != nil {
		row.RoutingMessage = sql.NullString{String: *rec.RoutingMessage, Valid: true}
	}
	if rec.SeverityTimeline != nil {
		row.SeverityTimeline = sql.NullString{String: *rec.SeverityTimeline, Valid: true}
	}
	if rec.DischargedAt != nil {
		row.DischargedAt = sql.NullTime{Time: *rec.DischargedAt, Valid: true}
	}
	return row, nil
}

func fromRow(row *patientRow) (*model.PatientRecord, error) {
	rec := &model.PatientRecord{
		ID:        row.ID,
		Code:      row.Code,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Age:       row.Age,
		Gender:    model.Gender(row.Gender),
		Vitals: model.Vitals{
			HeartRate:            row.HeartRate,
			SystolicBP:           row.SystolicBP,
			DiastolicBP:          row.DiastolicBP,
			Temperature:          row.Temperature,
			SpO2:                 row.SpO2,
			RespiratoryRate:      row.RespiratoryRate,
			PainScore:            row.PainScore,
			ChronicDiseaseCount:  row.ChronicDiseaseCount,
			SymptomDurationHours: row.SymptomDurationHours,
		},
		RiskLevel:       model.RiskLevel(row.RiskLevel),
		ConfidenceScore: row.ConfidenceScore,
		Probabilities: model.ProbabilityBreakdown{
			Low:    row.ProbLow,
			Medium: row.ProbMedium,
			High:   row.ProbHigh,
		},
		PriorityScore:         row.PriorityScore,
		RecommendedDepartment: row.RecommendedDepartment,
		Status:                model.PatientStatus(row.Status),
		ReasoningSummary:      row.ReasoningSummary,
	}

	if err := json.Unmarshal(row.SymptomsJSON, &rec.Symptoms); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(row.ConditionsJSON, &rec.PreExistingConditions); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(row.AlertsJSON, &rec.Alerts); err != nil {
		return nil, err
	}

	if row.RoutedDepartment.Valid {
		v := row.RoutedDepartment.String
		rec.RoutedDepartment = &v
	}
	if row.RoutingMessage.Valid {
		v := row.RoutingMessage.String
		rec.RoutingMessage = &v
	}
	if row.SeverityTimeline.Valid {
		v := row.SeverityTimeline.String
		rec.SeverityTimeline = &v
	}
	if row.DischargedAt.Valid {
		v := row.DischargedAt.Time
		rec.DischargedAt = &v
	}
	return rec, nil
}
