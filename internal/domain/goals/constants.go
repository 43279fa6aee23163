package goals

const EntityGoal = "Goal"

const (
	ActionGoalCreated             = "GoalCreated"
	ActionGoalApproved            = "GoalApproved"
	ActionGoalChangeRequested     = "GoalChangeRequested"
	ActionGoalUpdated             = "GoalUpdated"
	ActionGoalCompletionSubmitted = "GoalCompletionSubmitted"
	ActionGoalEvidenceVerified    = "GoalEvidenceVerified"
	ActionGoalCompletionApproved  = "GoalCompletionApproved"
	ActionGoalEvidenceRequested   = "GoalAdditionalEvidenceRequested"
	ActionGoalCompletionRejected  = "GoalCompletionRejected"
	ActionGoalProgressNoted       = "GoalProgressNoted"
	ActionGoalDeleted             = "GoalDeleted"
)

const (
	CategoryGoalSubmitted           = "GoalSubmitted"
	CategoryGoalApproved            = "GoalApproved"
	CategoryGoalChangesRequested    = "GoalChangesRequested"
	CategoryGoalResubmitted         = "GoalResubmitted"
	CategoryGoalCompletionSubmitted = "GoalCompletionSubmitted"
	CategoryGoalCompleted           = "GoalCompleted"
	CategoryGoalEvidenceRequested   = "GoalEvidenceRequested"
	CategoryGoalCompletionRejected  = "GoalCompletionRejected"
)

const (
	maxCommentLen = 4000
	maxNoteLen    = 4000
)
