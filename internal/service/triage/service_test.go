package triage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditriage/triage-api/internal/config"
	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/registry"
	"github.com/meditriage/triage-api/internal/repository"
	"github.com/meditriage/triage-api/internal/repository/memory"
	"github.com/meditriage/triage-api/internal/service/capacity"
	"github.com/meditriage/triage-api/internal/service/classifier"
	"github.com/meditriage/triage-api/internal/service/dispatch"
	"github.com/meditriage/triage-api/internal/service/queue"
	"github.com/meditriage/triage-api/internal/service/scorer"
	"github.com/meditriage/triage-api/internal/service/vitals"
	apperrors "github.com/meditriage/triage-api/pkg/errors"
)

type stubClassifier struct {
	result *model.Classification
	err    error
}

func (s *stubClassifier) Classify(context.Context, model.FeatureVector) (*model.Classification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubClassifier) ModelVersion() string { return "stub-v1" }

type failingRepo struct {
	repository.PatientRepository
}

func (failingRepo) Save(context.Context, *model.PatientRecord) error {
	return errors.New("disk full")
}

type recordingNotifier struct {
	notified chan *model.PatientRecord
}

func (n *recordingNotifier) NotifyCriticalAdmission(_ context.Context, rec *model.PatientRecord) error {
	n.notified <- rec
	return nil
}

type fixture struct {
	svc        *Service
	reg        *registry.Registry
	repo       repository.PatientRepository
	outbox     repository.OutboxRepository
	tracker    *capacity.Tracker
	notifier   *recordingNotifier
	classifier classifier.Classifier
}

func newFixture(t *testing.T, cls classifier.Classifier) *fixture {
	t.Helper()
	cfg := config.Default().Triage

	reg := registry.New()
	tracker := capacity.NewTracker(reg, cfg.Departments, cfg.Routing.OverloadThresholdPercent)
	repo := memory.NewPatientRepository()
	outbox := memory.NewOutboxRepository()
	notifier := &recordingNotifier{notified: make(chan *model.PatientRecord, 8)}

	if cls == nil {
		cls = classifier.NewRuleClassifier()
	}

	svc := NewService(
		vitals.NewValidator(cfg.Vitals),
		cls,
		scorer.NewScorer(cfg.Scoring),
		dispatch.NewRouter(cfg.Routing, tracker),
		tracker,
		queue.New(reg, cfg.Departments, cfg.Queue.BaseWaitMinutes),
		reg,
		repo,
		outbox,
		notifier,
		nil,
	)
	return &fixture{
		svc: svc, reg: reg, repo: repo, outbox: outbox,
		tracker: tracker, notifier: notifier, classifier: cls,
	}
}

func healthyIntake() *model.CreatePatientRequest {
	return &model.CreatePatientRequest{
		Age:                  32,
		Gender:               model.GenderMale,
		Symptoms:             []string{"nausea"},
		HeartRate:            75,
		SystolicBP:           120,
		DiastolicBP:          78,
		Temperature:          36.9,
		SpO2:                 99,
		RespiratoryRate:      15,
		PainScore:            1,
		SymptomDurationHours: 12,
	}
}

// criticalIntake mirrors an elderly chest-pain presentation with hypoxia.
func criticalIntake() *model.CreatePatientRequest {
	return &model.CreatePatientRequest{
		Age:                  70,
		Gender:               model.GenderMale,
		Symptoms:             []string{"chest_pain"},
		HeartRate:            130,
		SystolicBP:           170,
		DiastolicBP:          100,
		Temperature:          37.0,
		SpO2:                 89,
		RespiratoryRate:      22,
		PainScore:            8,
		ChronicDiseaseCount:  2,
		SymptomDurationHours: 1,
	}
}

func TestAdmitHealthyPatient(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Admit(context.Background(), healthyIntake())
	require.NoError(t, err)

	assert.Equal(t, model.PatientStatusAdmitted, resp.Status)
	assert.Equal(t, model.RiskLow, resp.RiskLevel)
	assert.Equal(t, "General Medicine", resp.RecommendedDepartment)
	assert.Nil(t, resp.RoutedDepartment)
	assert.Equal(t, 1, resp.QueuePosition)
	assert.NotEmpty(t, resp.Code)
	assert.Contains(t, resp.Code, "PT-")

	// Durable copy written.
	stored, err := f.repo.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, stored.ID)

	// Lifecycle event appended.
	events, err := f.outbox.GetPendingWithLock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventPatientAdmitted, events[0].EventType)
}

func TestAdmitCriticalPatient(t *testing.T) {
	f := newFixture(t, &stubClassifier{result: &model.Classification{
		RiskLevel:       model.RiskHigh,
		Probabilities:   model.ProbabilityBreakdown{Low: 0.05, Medium: 0.15, High: 0.80},
		ConfidenceScore: 80,
	}})

	resp, err := f.svc.Admit(context.Background(), criticalIntake())
	require.NoError(t, err)

	assert.Equal(t, model.RiskHigh, resp.RiskLevel)
	assert.GreaterOrEqual(t, resp.PriorityScore, 80.0)
	assert.Equal(t, "Emergency", resp.RecommendedDepartment)
	require.NotNil(t, resp.SeverityTimeline)

	// Hypoxia and tachycardia both produce critical alerts.
	criticals := 0
	for _, a := range resp.Alerts {
		if a.Severity == model.SeverityCritical {
			criticals++
		}
	}
	assert.GreaterOrEqual(t, criticals, 2)

	// The on-call notification fires asynchronously.
	select {
	case rec := <-f.notifier.notified:
		assert.Equal(t, resp.ID, rec.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a critical admission notification")
	}
}

func TestAdmitCriticalOutranksEarlierRoutine(t *testing.T) {
	f := newFixture(t, nil)

	routine, err := f.svc.Admit(context.Background(), healthyIntake())
	require.NoError(t, err)
	assert.Equal(t, 1, routine.QueuePosition)

	critical, err := f.svc.Admit(context.Background(), criticalIntake())
	require.NoError(t, err)
	assert.Equal(t, 1, critical.QueuePosition)

	p, err := f.svc.Placement(context.Background(), routine.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Position)
}

func TestAdmitValidationFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t, nil)

	req := healthyIntake()
	req.HeartRate = 500
	_, err := f.svc.Admit(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))

	assert.Equal(t, 0, f.reg.ActiveCount())
	all, _ := f.repo.ListAll(context.Background())
	assert.Empty(t, all)
}

func TestAdmitClassifierOutage(t *testing.T) {
	f := newFixture(t, &stubClassifier{err: classifier.ErrUnavailable})

	_, err := f.svc.Admit(context.Background(), healthyIntake())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrClassifierUnavailable))
	assert.Equal(t, 0, f.reg.ActiveCount())
}

func TestAdmitRollsBackRegistryOnSaveFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.svc.repo = failingRepo{}

	_, err := f.svc.Admit(context.Background(), healthyIntake())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrInternal))
	assert.Equal(t, 0, f.reg.ActiveCount())
}

func TestAdmitReroutesAwayFromOverloadedDepartment(t *testing.T) {
	f := newFixture(t, nil)

	// Saturate General Medicine past the 85% threshold.
	for i := 0; i < 26; i++ {
		rec := &model.PatientRecord{
			ID:                    uuid.New(),
			CreatedAt:             time.Now(),
			Status:                model.PatientStatusAdmitted,
			RecommendedDepartment: "General Medicine",
		}
		require.NoError(t, f.reg.Insert(rec))
	}

	resp, err := f.svc.Admit(context.Background(), healthyIntake())
	require.NoError(t, err)
	assert.Equal(t, "General Medicine", resp.RecommendedDepartment)
	require.NotNil(t, resp.RoutedDepartment)
	assert.NotEqual(t, "General Medicine", *resp.RoutedDepartment)
	require.NotNil(t, resp.RoutingMessage)
	assert.Contains(t, *resp.RoutingMessage, "overloaded")
}

func TestUpdateVitalsRescoresAndRequeues(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Admit(context.Background(), healthyIntake())
	require.NoError(t, err)
	require.Equal(t, model.RiskLow, resp.RiskLevel)
	originalScore := resp.PriorityScore

	worse := criticalIntake()
	updated, err := f.svc.UpdateVitals(context.Background(), resp.ID, worse)
	require.NoError(t, err)

	assert.Equal(t, model.RiskHigh, updated.RiskLevel)
	assert.Greater(t, updated.PriorityScore, originalScore)
	assert.Equal(t, "Emergency", updated.RecommendedDepartment)
	assert.Equal(t, 70, updated.Age)

	// The stored copy reflects the re-score.
	stored, err := f.repo.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RiskHigh, stored.RiskLevel)
}

func TestUpdateVitalsUnknownPatient(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.UpdateVitals(context.Background(), uuid.New(), healthyIntake())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestTransferReassignsWithoutRescoring(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Admit(context.Background(), healthyIntake())
	require.NoError(t, err)
	scoreBefore := resp.PriorityScore

	moved, err := f.svc.Transfer(context.Background(), resp.ID, "Neurology")
	require.NoError(t, err)

	require.NotNil(t, moved.RoutedDepartment)
	assert.Equal(t, "Neurology", *moved.RoutedDepartment)
	assert.Equal(t, model.PatientStatusTransferred, moved.Status)
	assert.Equal(t, scoreBefore, moved.PriorityScore)
	assert.Equal(t, resp.RiskLevel, moved.RiskLevel)

	// Capacity followed the patient.
	assert.Equal(t, 1, f.tracker.Load("Neurology").CurrentPatients)
	assert.Equal(t, 0, f.tracker.Load("General Medicine").CurrentPatients)
}

func TestTransferToUnknownDepartment(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Admit(context.Background(), healthyIntake())
	require.NoError(t, err)

	_, err = f.svc.Transfer(context.Background(), resp.ID, "Oncology")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrBadRequest))
}

func TestDischargeIsTerminal(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Admit(context.Background(), healthyIntake())
	require.NoError(t, err)

	rec, err := f.svc.Discharge(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PatientStatusDischarged, rec.Status)
	require.NotNil(t, rec.DischargedAt)
	assert.Equal(t, 0, f.reg.ActiveCount())

	// A repeat discharge is a conflict; other mutations report not-found.
	_, err = f.svc.Discharge(context.Background(), resp.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	_, err = f.svc.Transfer(context.Background(), resp.ID, "Neurology")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
	_, err = f.svc.UpdateVitals(context.Background(), resp.ID, healthyIntake())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))

	// The record stays for the audit view.
	all, err := f.svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListReturnsQueueOrder(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Admit(context.Background(), healthyIntake())
	require.NoError(t, err)
	critical, err := f.svc.Admit(context.Background(), criticalIntake())
	require.NoError(t, err)

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, critical.ID, list[0].ID)
	assert.Equal(t, 1, list[0].QueuePosition)
	assert.Equal(t, 2, list[1].QueuePosition)
}

func TestDashboardCounts(t *testing.T) {
	f := newFixture(t, nil)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Admit(context.Background(), healthyIntake())
		require.NoError(t, err)
	}
	_, err := f.svc.Admit(context.Background(), criticalIntake())
	require.NoError(t, err)

	stats := f.svc.Dashboard(context.Background())
	assert.Equal(t, 4, stats.TotalPatientsToday)
	assert.Equal(t, 3, stats.LowRiskCount)
	assert.Equal(t, 1, stats.HighRiskCount)
	assert.Equal(t, 3, stats.DepartmentDistribution["General Medicine"])
	assert.Equal(t, 1, stats.DepartmentDistribution["Emergency"])
}

func TestConcurrentAdmits(t *testing.T) {
	f := newFixture(t, nil)

	const n = 30
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Admit(context.Background(), healthyIntake())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, f.reg.ActiveCount())

	// Positions are a permutation of 1..n.
	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, n)
	seen := make(map[int]bool)
	for _, p := range list {
		assert.False(t, seen[p.QueuePosition])
		seen[p.QueuePosition] = true
		assert.GreaterOrEqual(t, p.QueuePosition, 1)
		assert.LessOrEqual(t, p.QueuePosition, n)
	}
}

func TestOutboxEventsPerLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Admit(context.Background(), healthyIntake())
	require.NoError(t, err)
	_, err = f.svc.UpdateVitals(context.Background(), resp.ID, healthyIntake())
	require.NoError(t, err)
	_, err = f.svc.Transfer(context.Background(), resp.ID, "Neurology")
	require.NoError(t, err)
	_, err = f.svc.Discharge(context.Background(), resp.ID)
	require.NoError(t, err)

	events, err := f.outbox.GetPendingWithLock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 4)
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType
	}
	assert.Equal(t, []string{
		model.EventPatientAdmitted,
		model.EventPatientRescored,
		model.EventPatientTransferred,
		model.EventPatientDischarged,
	}, types)
}
