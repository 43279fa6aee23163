package notifications

const (
	defaultFrom  = "no-reply@example.com"
	defaultLimit = 50
	maxLimit     = 200
)
