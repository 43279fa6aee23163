package cycles

import "time"

type Status string

const (
	StatusDraft  Status = "Draft"
	StatusActive Status = "Active"
	StatusClosed Status = "Closed"
)

type Cycle struct {
	ID                      int64     `json:"id"`
	Name                    string    `json:"name"`
	StartDate               time.Time `json:"startDate"`
	EndDate                 time.Time `json:"endDate"`
	Status                  Status    `json:"status"`
	RequiresManagerApproval bool      `json:"requiresManagerApproval"`
	EvidenceMandatory       bool      `json:"evidenceMandatory"`
	CreatedAt               time.Time `json:"createdAt"`
	UpdatedAt               time.Time `json:"updatedAt"`
}

type CycleInput struct {
	Name                    string    `json:"name" validate:"required,max=200"`
	StartDate               time.Time `json:"startDate" validate:"required"`
	EndDate                 time.Time `json:"endDate" validate:"required,gtefield=StartDate"`
	RequiresManagerApproval bool      `json:"requiresManagerApproval"`
	EvidenceMandatory       bool      `json:"evidenceMandatory"`
}
