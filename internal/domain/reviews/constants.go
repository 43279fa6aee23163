package reviews

const EntityReview = "PerformanceReview"

const (
	ActionSelfAssessmentSubmitted    = "SelfAssessmentSubmitted"
	ActionSelfAssessmentDraftUpdated = "SelfAssessmentDraftUpdated"
	ActionManagerReviewCompleted     = "ManagerReviewCompleted"
	ActionReviewAcknowledged         = "ReviewAcknowledged"
	ActionReviewsOpened              = "ReviewsOpened"
)

const (
	CategorySelfAssessmentSubmitted = "SelfAssessmentSubmitted"
	CategoryReviewCompleted         = "ReviewCompleted"
	CategoryReviewAcknowledged      = "ReviewAcknowledged"
	CategoryReviewOpened            = "ReviewOpened"
)

const maxResponseLen = 4000
