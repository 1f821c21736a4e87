package triage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/meditriage/triage-api/internal/email"
	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/registry"
	"github.com/meditriage/triage-api/internal/repository"
	"github.com/meditriage/triage-api/internal/service/capacity"
	"github.com/meditriage/triage-api/internal/service/classifier"
	"github.com/meditriage/triage-api/internal/service/dispatch"
	"github.com/meditriage/triage-api/internal/service/queue"
	"github.com/meditriage/triage-api/internal/service/scorer"
	"github.com/meditriage/triage-api/internal/service/vitals"
	"github.com/meditriage/triage-api/pkg/errors"
	"github.com/meditriage/triage-api/pkg/metrics"
)

// TriageService is the orchestrating surface over the triage core.
type TriageService interface {
	Admit(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*model.PatientResponse, error)
	List(ctx context.Context) ([]*model.PatientResponse, error)
	ListAll(ctx context.Context) ([]*model.PatientRecord, error)
	UpdateVitals(ctx context.Context, id uuid.UUID, req *model.UpdateVitalsRequest) (*model.PatientResponse, error)
	Transfer(ctx context.Context, id uuid.UUID, department string) (*model.PatientResponse, error)
	Discharge(ctx context.Context, id uuid.UUID) (*model.PatientRecord, error)
	Placement(ctx context.Context, id uuid.UUID) (*model.QueuePlacement, error)
	DepartmentStatus(ctx context.Context) []model.DepartmentStatus
	Dashboard(ctx context.Context) *model.DashboardStats
}

type Service struct {
	// mu serializes the full admit/edit/transfer/discharge sequences so
	// scoring, capacity effects and queue membership commit as one unit.
	mu sync.Mutex

	validator  *vitals.Validator
	classifier classifier.Classifier
	scorer     *scorer.Scorer
	router     *dispatch.Router
	tracker    *capacity.Tracker
	queue      *queue.Queue
	registry   *registry.Registry
	repo       repository.PatientRepository
	outboxRepo repository.OutboxRepository
	notifier   email.Notifier
	metrics    *metrics.Metrics
}

func NewService(
	validator *vitals.Validator,
	cls classifier.Classifier,
	sc *scorer.Scorer,
	router *dispatch.Router,
	tracker *capacity.Tracker,
	q *queue.Queue,
	reg *registry.Registry,
	repo repository.PatientRepository,
	outboxRepo repository.OutboxRepository,
	notifier email.Notifier,
	m *metrics.Metrics,
) *Service {
	if notifier == nil {
		notifier = email.NoopNotifier{}
	}
	return &Service{
		validator:  validator,
		classifier: cls,
		scorer:     sc,
		router:     router,
		tracker:    tracker,
		queue:      q,
		registry:   reg,
		repo:       repo,
		outboxRepo: outboxRepo,
		notifier:   notifier,
		metrics:    m,
	}
}

// Admit runs the full intake pipeline: validate, classify, score, route,
// register, persist. Validation and classifier failures abort the whole
// operation with no partial writes; capacity exhaustion degrades to a
// routing warning and still admits.
func (s *Service) Admit(ctx context.Context, req *model.CreatePatientRequest) (*model.PatientResponse, error) {
	var timer *prometheus.Timer
	if s.metrics != nil {
		timer = prometheus.NewTimer(s.metrics.ScoringLatency)
		defer timer.ObserveDuration()
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &model.PatientRecord{
		ID:                    uuid.New(),
		CreatedAt:             now,
		UpdatedAt:             now,
		Age:                   req.Age,
		Gender:                req.Gender,
		Symptoms:              dedupe(req.Symptoms),
		PreExistingConditions: append([]string(nil), req.PreExistingConditions...),
		Vitals:                req.ToVitals(),
		Status:                model.PatientStatusSubmitted,
	}
	rec.Code = model.NewPatientCode(rec.ID, now)

	if err := s.scoreRecord(ctx, rec); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.routeRecord(rec)
	rec.Status = model.PatientStatusAdmitted

	if err := s.registry.Insert(rec); err != nil {
		s.mu.Unlock()
		return nil, errors.Internal(fmt.Errorf("failed to register patient: %w", err))
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		s.registry.Remove(rec.ID)
		s.mu.Unlock()
		return nil, errors.Internal(fmt.Errorf("failed to persist patient: %w", err))
	}
	s.appendEvent(ctx, model.EventPatientAdmitted, rec)
	s.refreshGauges()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.PatientsAdmitted.WithLabelValues(string(rec.RiskLevel)).Inc()
		if rec.RoutedDepartment != nil {
			s.metrics.PatientsRerouted.Inc()
		}
	}
	s.notifyCritical(rec)

	return s.respond(rec)
}

func (s *Service) Get(_ context.Context, id uuid.UUID) (*model.PatientResponse, error) {
	rec, err := s.registry.Get(id)
	if err != nil {
		return nil, errors.NotFound("patient", err)
	}
	return s.respond(rec)
}

// List returns all active patients in queue order, each with its position
// and estimated wait.
func (s *Service) List(_ context.Context) ([]*model.PatientResponse, error) {
	snapshot := s.queue.Snapshot()
	placements := s.queue.Placements()

	out := make([]*model.PatientResponse, 0, len(snapshot))
	for _, rec := range snapshot {
		p := placements[rec.ID]
		out = append(out, &model.PatientResponse{
			PatientRecord:        rec,
			QueuePosition:        p.Position,
			EstimatedWaitMinutes: p.EstimatedWaitMinutes,
		})
	}
	return out, nil
}

// ListAll returns every record including discharged ones, for audit views.
func (s *Service) ListAll(_ context.Context) ([]*model.PatientRecord, error) {
	return s.registry.All(), nil
}

// UpdateVitals mutates the clinical inputs in place and recomputes every
// derived field wholesale: re-scoring, re-routing and re-queueing.
func (s *Service) UpdateVitals(ctx context.Context, id uuid.UUID, req *model.UpdateVitalsRequest) (*model.PatientResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	// Classify outside the registry lock; the classifier is pure.
	probe := &model.PatientRecord{
		Age:      req.Age,
		Gender:   req.Gender,
		Symptoms: dedupe(req.Symptoms),
		Vitals:   req.ToVitals(),
	}
	if err := s.scoreRecord(ctx, probe); err != nil {
		return nil, err
	}

	s.mu.Lock()
	rec, err := s.registry.Update(id, func(r *model.PatientRecord) error {
		r.Age = probe.Age
		r.Gender = probe.Gender
		r.Symptoms = probe.Symptoms
		r.PreExistingConditions = append([]string(nil), req.PreExistingConditions...)
		r.Vitals = probe.Vitals
		r.RiskLevel = probe.RiskLevel
		r.ConfidenceScore = probe.ConfidenceScore
		r.Probabilities = probe.Probabilities
		r.PriorityScore = probe.PriorityScore
		r.SeverityTimeline = probe.SeverityTimeline
		r.Alerts = probe.Alerts
		s.routeRecord(r)
		r.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		s.mu.Unlock()
		return nil, notFoundErr(err)
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		s.mu.Unlock()
		return nil, errors.Internal(fmt.Errorf("failed to persist patient: %w", err))
	}
	s.appendEvent(ctx, model.EventPatientRescored, rec)
	s.refreshGauges()
	s.mu.Unlock()

	s.notifyCritical(rec)
	return s.respond(rec)
}

// Transfer reassigns the patient's department without re-scoring. The
// capacity effect (decrement old, increment new) is atomic because counts
// derive from the single committed record.
func (s *Service) Transfer(ctx context.Context, id uuid.UUID, department string) (*model.PatientResponse, error) {
	if !s.tracker.Known(department) {
		return nil, errors.BadRequest(fmt.Sprintf("unknown department %q", department), nil)
	}

	s.mu.Lock()
	rec, err := s.registry.Update(id, func(r *model.PatientRecord) error {
		msg := fmt.Sprintf("Transferred to %s by operator.", department)
		r.RoutedDepartment = &department
		r.RoutingMessage = &msg
		r.Status = model.PatientStatusTransferred
		r.UpdatedAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		s.mu.Unlock()
		return nil, notFoundErr(err)
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		s.mu.Unlock()
		return nil, errors.Internal(fmt.Errorf("failed to persist patient: %w", err))
	}
	s.appendEvent(ctx, model.EventPatientTransferred, rec)
	s.refreshGauges()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.PatientsTransferred.Inc()
	}
	return s.respond(rec)
}

// Discharge removes the patient from the active queue and capacity counts
// permanently. Discharge is terminal: it wins any race with a transfer, and
// a repeat discharge reports a conflict with no state change.
func (s *Service) Discharge(ctx context.Context, id uuid.UUID) (*model.PatientRecord, error) {
	s.mu.Lock()
	rec, err := s.registry.Discharge(id, time.Now().UTC())
	if err != nil {
		s.mu.Unlock()
		if err == registry.ErrDischarged {
			return nil, errors.Conflict("patient already discharged", err)
		}
		return nil, notFoundErr(err)
	}
	if err := s.repo.Save(ctx, rec); err != nil {
		s.mu.Unlock()
		return nil, errors.Internal(fmt.Errorf("failed to persist discharge: %w", err))
	}
	s.appendEvent(ctx, model.EventPatientDischarged, rec)
	s.refreshGauges()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.PatientsDischarged.Inc()
	}
	return rec, nil
}

func (s *Service) Placement(_ context.Context, id uuid.UUID) (*model.QueuePlacement, error) {
	p, err := s.queue.Placement(id)
	if err != nil {
		return nil, errors.NotFound("patient", err)
	}
	return &p, nil
}

func (s *Service) DepartmentStatus(_ context.Context) []model.DepartmentStatus {
	return s.tracker.Status()
}

func (s *Service) Dashboard(_ context.Context) *model.DashboardStats {
	active := s.registry.Active()
	stats := &model.DashboardStats{
		TotalPatientsToday:     len(active),
		RiskDistribution:       map[string]int{"low": 0, "medium": 0, "high": 0},
		DepartmentDistribution: map[string]int{},
	}
	for _, rec := range active {
		stats.RiskDistribution[string(rec.RiskLevel)]++
		stats.DepartmentDistribution[rec.EffectiveDepartment()]++
	}
	stats.HighRiskCount = stats.RiskDistribution["high"]
	stats.MediumRiskCount = stats.RiskDistribution["medium"]
	stats.LowRiskCount = stats.RiskDistribution["low"]
	return stats
}

// scoreRecord fills the classifier- and scorer-derived fields. It never
// guesses a tier: classifier failure aborts the operation.
func (s *Service) scoreRecord(ctx context.Context, rec *model.PatientRecord) error {
	rec.Alerts = s.validator.Alerts(rec.Vitals)

	cls, err := s.classifier.Classify(ctx, rec.FeatureVector())
	if err != nil {
		if s.metrics != nil {
			s.metrics.ClassifierErrors.Inc()
		}
		return errors.ClassifierUnavailable(err)
	}

	rec.RiskLevel = cls.RiskLevel
	rec.ConfidenceScore = cls.ConfidenceScore
	rec.Probabilities = cls.Probabilities
	rec.PriorityScore = s.scorer.Score(scorer.Input{
		RiskLevel:     cls.RiskLevel,
		Probabilities: cls.Probabilities,
		Vitals:        rec.Vitals,
		Alerts:        rec.Alerts,
		Age:           rec.Age,
	})
	rec.SeverityTimeline = scorer.SeverityTimeline(cls.RiskLevel, rec.Vitals)
	rec.Status = model.PatientStatusScored
	return nil
}

// routeRecord resolves the department fields; caller holds s.mu.
func (s *Service) routeRecord(rec *model.PatientRecord) {
	recommended, reason := s.router.Recommend(rec.RiskLevel, rec.Symptoms)
	rec.RecommendedDepartment = recommended
	rec.ReasoningSummary = reason
	rec.RoutedDepartment, rec.RoutingMessage = s.router.Route(rec.RiskLevel, recommended)
}

func (s *Service) respond(rec *model.PatientRecord) (*model.PatientResponse, error) {
	resp := &model.PatientResponse{PatientRecord: rec}
	if p, err := s.queue.Placement(rec.ID); err == nil {
		resp.QueuePosition = p.Position
		resp.EstimatedWaitMinutes = p.EstimatedWaitMinutes
	}
	return resp, nil
}

// appendEvent records a lifecycle event for the outbox worker. Best-effort:
// a failed append is logged, never fails the clinical operation.
func (s *Service) appendEvent(ctx context.Context, eventType string, rec *model.PatientRecord) {
	if s.outboxRepo == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal outbox payload")
		return
	}
	if err := s.outboxRepo.Create(ctx, &model.OutboxEvent{EventType: eventType, Payload: payload}); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to create outbox event")
	}
}

func (s *Service) notifyCritical(rec *model.PatientRecord) {
	for _, a := range rec.Alerts {
		if a.Severity == model.SeverityCritical {
			go func(r *model.PatientRecord) {
				if err := s.notifier.NotifyCriticalAdmission(context.Background(), r); err != nil {
					log.Error().Err(err).Str("patient", r.Code).Msg("failed to notify on-call")
				}
			}(rec.Clone())
			return
		}
	}
}

func (s *Service) refreshGauges() {
	if s.metrics == nil {
		return
	}
	s.metrics.QueueDepth.Set(float64(s.registry.ActiveCount()))
	for _, d := range s.tracker.Status() {
		s.metrics.DepartmentLoad.WithLabelValues(d.Department).Set(d.LoadPercentage)
	}
}

func notFoundErr(err error) error {
	switch err {
	case registry.ErrNotFound, registry.ErrDischarged:
		return errors.NotFound("patient", err)
	default:
		return errors.Internal(err)
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
