package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditriage/triage-api/internal/model"
	"github.com/meditriage/triage-api/internal/repository/memory"
	"github.com/meditriage/triage-api/pkg/logger"
	"github.com/meditriage/triage-api/pkg/metrics"
)

type fakeBroker struct {
	mu        sync.Mutex
	published []string
	fail      bool
}

func (b *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return errors.New("broker down")
	}
	b.published = append(b.published, channel)
	return nil
}

func (b *fakeBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *fakeBroker) Close() error { return nil }

var testMetrics = metrics.NewMetrics("outbox_test")

func TestProcessEventsPublishesPending(t *testing.T) {
	broker := &fakeBroker{}
	repo := memory.NewOutboxRepository()
	p := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  10 * time.Millisecond,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), testMetrics)

	payload, _ := json.Marshal(map[string]string{"patient_id": "PT-1"})
	require.NoError(t, repo.Create(context.Background(), &model.OutboxEvent{
		EventType: model.EventPatientAdmitted,
		Payload:   payload,
	}))

	require.NoError(t, p.processEvents(context.Background()))
	assert.Equal(t, []string{model.EventPatientAdmitted}, broker.published)

	pending, err := repo.GetPendingWithLock(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessEventsMarksFailedAfterRetries(t *testing.T) {
	broker := &fakeBroker{fail: true}
	repo := memory.NewOutboxRepository()
	p := NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  10 * time.Millisecond,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), testMetrics)

	require.NoError(t, repo.Create(context.Background(), &model.OutboxEvent{
		EventType: model.EventPatientDischarged,
		Payload:   json.RawMessage(`{}`),
	}))

	require.NoError(t, p.processEvents(context.Background()))

	// Failed events leave the pending set; operators requeue them manually.
	pending, err := repo.GetPendingWithLock(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestConfigDefaults(t *testing.T) {
	p := NewOutboxProcessor(memory.NewOutboxRepository(), &fakeBroker{}, OutboxProcessorConfig{}, logger.NewLogger(nil), testMetrics)
	assert.Equal(t, 100, p.config.BatchSize)
	assert.Equal(t, 5*time.Second, p.config.PollInterval)
	assert.Equal(t, 3, p.config.RetryAttempts)
	assert.Equal(t, time.Second, p.config.RetryDelay)
}
