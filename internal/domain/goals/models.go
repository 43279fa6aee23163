package goals

import (
	"fmt"
	"time"

	"perftrack/internal/domain/workflow"
)

type Status string

const (
	StatusPending                   Status = "Pending"
	StatusInProgress                Status = "InProgress"
	StatusPendingCompletionApproval Status = "PendingCompletionApproval"
	StatusCompleted                 Status = "Completed"
	StatusRejected                  Status = "Rejected"
)

// Terminal reports whether the goal can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// VerificationStatus is the manager's verdict on submitted evidence.
type VerificationStatus string

const (
	VerificationNotVerified         VerificationStatus = "NotVerified"
	VerificationVerified            VerificationStatus = "Verified"
	VerificationNeedsAdditionalLink VerificationStatus = "NeedsAdditionalLink"
	VerificationInvalid             VerificationStatus = "Invalid"
)

func ParseVerificationStatus(value string) (VerificationStatus, error) {
	v := VerificationStatus(value)
	if !v.Valid() {
		return "", fmt.Errorf("%w: unknown verification status %q", workflow.ErrInvalidInput, value)
	}
	return v, nil
}

func (v VerificationStatus) Valid() bool {
	switch v {
	case VerificationNotVerified, VerificationVerified, VerificationNeedsAdditionalLink, VerificationInvalid:
		return true
	}
	return false
}

// UnmarshalText rejects unknown values when decoding request bodies.
func (v *VerificationStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseVerificationStatus(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

type ApprovalStatus string

const (
	ApprovalNone                       ApprovalStatus = ""
	ApprovalPending                    ApprovalStatus = "Pending"
	ApprovalApproved                   ApprovalStatus = "Approved"
	ApprovalRejected                   ApprovalStatus = "Rejected"
	ApprovalAdditionalEvidenceRequired ApprovalStatus = "AdditionalEvidenceRequired"
)

type Decision string

const (
	DecisionApproved Decision = "Approved"
	DecisionRejected Decision = "Rejected"
)

type Evidence struct {
	Link        string `json:"link" validate:"omitempty,url,max=2048"`
	Description string `json:"description" validate:"max=4000"`
	AccessNotes string `json:"accessNotes" validate:"max=2000"`
}

func (e Evidence) Empty() bool {
	return e.Link == "" && e.Description == "" && e.AccessNotes == ""
}

type Feedback struct {
	ID        int64     `json:"id"`
	GoalID    int64     `json:"goalId"`
	AuthorID  int64     `json:"authorId"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type ProgressNote struct {
	ID        int64     `json:"id"`
	GoalID    int64     `json:"goalId"`
	AuthorID  int64     `json:"authorId"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

// CompletionApproval is appended once per completion decision and never changed.
type CompletionApproval struct {
	ID        int64     `json:"id"`
	GoalID    int64     `json:"goalId"`
	DecidedBy int64     `json:"decidedBy"`
	Decision  Decision  `json:"decision"`
	Comments  string    `json:"comments"`
	DecidedAt time.Time `json:"decidedAt"`
}

type Goal struct {
	ID                  int64                `json:"id"`
	AssignedTo          int64                `json:"assignedTo"`
	AssignedManager     int64                `json:"assignedManager"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	Category            string               `json:"category"`
	Priority            workflow.Priority    `json:"priority"`
	StartDate           time.Time            `json:"startDate"`
	EndDate             time.Time            `json:"endDate"`
	Status              Status               `json:"status"`
	ChangeRequested     bool                 `json:"changeRequested"`
	ApprovedBy          *int64               `json:"approvedBy,omitempty"`
	ApprovedAt          *time.Time           `json:"approvedAt,omitempty"`
	ResubmittedAt       *time.Time           `json:"resubmittedAt,omitempty"`
	Evidence            Evidence             `json:"evidence"`
	EvidenceSubmittedAt *time.Time           `json:"evidenceSubmittedAt,omitempty"`
	Verification        VerificationStatus   `json:"verification,omitempty"`
	VerifiedBy          *int64               `json:"verifiedBy,omitempty"`
	VerifiedAt          *time.Time           `json:"verifiedAt,omitempty"`
	VerificationNotes   string               `json:"verificationNotes,omitempty"`
	CompletionApproval  ApprovalStatus       `json:"completionApproval,omitempty"`
	CompletedAt         *time.Time           `json:"completedAt,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`
	Feedback            []Feedback           `json:"feedback"`
	ProgressNotes       []ProgressNote       `json:"progressNotes"`
	Approvals           []CompletionApproval `json:"approvals"`
}

// GoalInput holds the employee-editable fields of a goal.
type GoalInput struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=4000"`
	Category    string            `json:"category" validate:"max=100"`
	Priority    workflow.Priority `json:"priority" validate:"omitempty,oneof=Low Medium High Critical"`
	StartDate   time.Time         `json:"startDate" validate:"required"`
	EndDate     time.Time         `json:"endDate" validate:"required,gtefield=StartDate"`
	ManagerID   int64             `json:"managerId"`
}

type ListFilter struct {
	OwnerID   int64
	ManagerID int64
	Status    Status
	Limit     int
	Offset    int
}
