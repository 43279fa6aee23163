package cycles

const (
	EntityCycle = "ReviewCycle"

	ActionCycleCreated   = "CycleCreated"
	ActionCycleUpdated   = "CycleUpdated"
	ActionCycleActivated = "CycleActivated"
	ActionCycleClosed    = "CycleClosed"
)
