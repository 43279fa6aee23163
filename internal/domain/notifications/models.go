package notifications

import (
	"time"

	"perftrack/internal/domain/workflow"
)

type Notification struct {
	ID             int64             `json:"id"`
	UserID         int64             `json:"userId"`
	Category       string            `json:"category"`
	Message        string            `json:"message"`
	RelatedType    string            `json:"relatedType,omitempty"`
	RelatedID      int64             `json:"relatedId,omitempty"`
	Priority       workflow.Priority `json:"priority"`
	ActionRequired bool              `json:"actionRequired"`
	ReadAt         *time.Time        `json:"readAt,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
}
