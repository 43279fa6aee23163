package directory

const (
	EntityUser = "User"

	ActionUserCreated = "UserCreated"
	ActionUserUpdated = "UserUpdated"
)

// maxReportingDepth bounds the walk up the manager chain.
const maxReportingDepth = 1000
