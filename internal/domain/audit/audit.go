package audit

import (
	"context"
	"time"

	"perftrack/internal/domain/workflow"
)

type Event struct {
	ID         int64     `json:"id"`
	ActorID    int64     `json:"actorId"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType"`
	EntityID   int64     `json:"entityId"`
	Detail     string    `json:"detail"`
	Outcome    string    `json:"outcome"`
	RequestID  string    `json:"requestId"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Filter struct {
	Action     string
	EntityType string
	ActorID    int64
}

type StoreAPI interface {
	InsertEvent(ctx context.Context, evt Event) error
	ListEvents(ctx context.Context, filter Filter, limit, offset int) ([]Event, error)
	CountEvents(ctx context.Context, filter Filter) (int, error)
}

// Service implements workflow.AuditRecorder on top of an append-only store.
type Service struct {
	store StoreAPI
}

func New(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Record(ctx context.Context, rec workflow.AuditRecord) error {
	return s.store.InsertEvent(ctx, Event{
		ActorID:    rec.ActorID,
		Action:     rec.Action,
		EntityType: rec.RelatedType,
		EntityID:   rec.RelatedID,
		Detail:     rec.Detail,
		Outcome:    rec.Outcome,
		RequestID:  rec.RequestID,
		OccurredAt: rec.OccurredAt,
	})
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Event, error) {
	return s.store.ListEvents(ctx, filter, limit, offset)
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	return s.store.CountEvents(ctx, filter)
}
