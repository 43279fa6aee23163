package auth

const (
	PermGoalsRead         = "goals.read"
	PermGoalsWrite        = "goals.write"
	PermGoalsManage       = "goals.manage"
	PermReviewsRead       = "reviews.read"
	PermReviewsWrite      = "reviews.write"
	PermReviewsManage     = "reviews.manage"
	PermCyclesRead        = "cycles.read"
	PermCyclesAdmin       = "cycles.admin"
	PermDirectoryRead     = "directory.read"
	PermDirectoryAdmin    = "directory.admin"
	PermNotificationsRead = "notifications.read"
	PermAuditRead         = "audit.read"
)

var RolePermissions = map[Role][]string{
	RoleEmployee: {
		PermGoalsRead,
		PermGoalsWrite,
		PermReviewsRead,
		PermReviewsWrite,
		PermCyclesRead,
		PermNotificationsRead,
	},
	RoleManager: {
		PermGoalsRead,
		PermGoalsWrite,
		PermGoalsManage,
		PermReviewsRead,
		PermReviewsWrite,
		PermReviewsManage,
		PermCyclesRead,
		PermDirectoryRead,
		PermNotificationsRead,
	},
	RoleAdmin: {
		PermGoalsRead,
		PermGoalsWrite,
		PermGoalsManage,
		PermReviewsRead,
		PermReviewsWrite,
		PermReviewsManage,
		PermCyclesRead,
		PermCyclesAdmin,
		PermDirectoryRead,
		PermDirectoryAdmin,
		PermNotificationsRead,
		PermAuditRead,
	},
}

func HasPermission(role Role, permission string) bool {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true
		}
	}
	return false
}
