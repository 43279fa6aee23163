package workflow

import (
	"context"
	"time"
)

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

const (
	OutcomeSuccess = "success"
)

// Notification is a fire-and-forget delivery request for a single recipient.
type Notification struct {
	RecipientID    int64
	Category       string
	Message        string
	RelatedType    string
	RelatedID      int64
	Priority       Priority
	ActionRequired bool
}

// AuditRecord is an immutable action record. The engines never read these back.
type AuditRecord struct {
	ActorID     int64
	Action      string
	RelatedType string
	RelatedID   int64
	Detail      string
	Outcome     string
	RequestID   string
	OccurredAt  time.Time
}

type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

type AuditRecorder interface {
	Record(ctx context.Context, rec AuditRecord) error
}
