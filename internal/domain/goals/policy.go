package goals

import "perftrack/internal/domain/auth"

func canActOnGoalAsManager(caller auth.Caller, g Goal) bool {
	return caller.UserID == g.AssignedManager
}

func canActOnGoalAsEmployee(caller auth.Caller, g Goal) bool {
	return caller.UserID == g.AssignedTo
}

// Employees may soft-delete only their own goals; managers and admins any goal.
func canDeleteGoal(caller auth.Caller, g Goal) bool {
	switch caller.Role {
	case auth.RoleAdmin, auth.RoleManager:
		return true
	case auth.RoleEmployee:
		return canActOnGoalAsEmployee(caller, g)
	}
	return false
}

func canViewGoal(caller auth.Caller, g Goal) bool {
	return caller.IsAdmin() || canActOnGoalAsEmployee(caller, g) || canActOnGoalAsManager(caller, g)
}
