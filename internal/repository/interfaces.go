package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/meditriage/triage-api/internal/model"
)

// PatientRepository persists triage records. Writes are durable before an
// admit or edit is considered complete; ListActive reflects discharge state.
type PatientRepository interface {
	Save(ctx context.Context, rec *model.PatientRecord) error
	Get(ctx context.Context, id uuid.UUID) (*model.PatientRecord, error)
	ListActive(ctx context.Context) ([]*model.PatientRecord, error)
	ListAll(ctx context.Context) ([]*model.PatientRecord, error)
}

// OutboxRepository stores lifecycle events for asynchronous publication.
type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string) error
}
