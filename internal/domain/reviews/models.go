package reviews

import "time"

type Status string

const (
	StatusPending                  Status = "Pending"
	StatusSelfAssessmentCompleted  Status = "SelfAssessmentCompleted"
	StatusCompleted                Status = "Completed"
	StatusCompletedAndAcknowledged Status = "CompletedAndAcknowledged"
)

type Review struct {
	ID                         int64      `json:"id"`
	CycleID                    int64      `json:"cycleId"`
	UserID                     int64      `json:"userId"`
	SelfAssessment             string     `json:"selfAssessment"`
	SelfRating                 *int       `json:"selfRating,omitempty"`
	ManagerFeedback            string     `json:"managerFeedback"`
	ManagerRating              *int       `json:"managerRating,omitempty"`
	RatingJustification        string     `json:"ratingJustification"`
	CompensationRecommendation string     `json:"compensationRecommendation"`
	NextPeriodGoals            string     `json:"nextPeriodGoals"`
	ReviewedBy                 *int64     `json:"reviewedBy,omitempty"`
	AcknowledgedBy             *int64     `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt             *time.Time `json:"acknowledgedAt,omitempty"`
	EmployeeResponse           string     `json:"employeeResponse"`
	Status                     Status     `json:"status"`
	SubmittedAt                *time.Time `json:"submittedAt,omitempty"`
	CompletedAt                *time.Time `json:"completedAt,omitempty"`
	CreatedAt                  time.Time  `json:"createdAt"`
	UpdatedAt                  time.Time  `json:"updatedAt"`
	GoalLinks                  []GoalLink `json:"goalLinks"`
}

// GoalLink ties a review to a completed goal. Unique per (review, goal).
type GoalLink struct {
	ReviewID  int64     `json:"reviewId"`
	GoalID    int64     `json:"goalId"`
	CreatedAt time.Time `json:"createdAt"`
}

type SelfAssessment struct {
	CycleID int64  `json:"cycleId"`
	Text    string `json:"text" validate:"required,max=10000"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
}

type ManagerReview struct {
	Feedback                   string `json:"feedback" validate:"required,max=10000"`
	Rating                     int    `json:"rating" validate:"min=1,max=5"`
	Justification              string `json:"justification" validate:"max=4000"`
	CompensationRecommendation string `json:"compensationRecommendation" validate:"max=2000"`
	NextPeriodGoals            string `json:"nextPeriodGoals" validate:"max=4000"`
}

type ListFilter struct {
	CycleID int64
	UserIDs []int64
	Status  Status
	Limit   int
	Offset  int
}
