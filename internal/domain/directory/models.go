package directory

import (
	"time"

	"perftrack/internal/domain/auth"
)

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	Role      auth.Role `json:"role"`
	Status    Status    `json:"status"`
	ManagerID *int64    `json:"managerId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) IsActive() bool {
	return u.Status == StatusActive
}

func (u User) ManagedBy(managerID int64) bool {
	return u.ManagerID != nil && *u.ManagerID == managerID
}

type UserInput struct {
	Email     string    `json:"email" validate:"required,email,max=320"`
	FullName  string    `json:"fullName" validate:"required,max=200"`
	Role      auth.Role `json:"role" validate:"required,oneof=Admin Manager Employee"`
	Status    Status    `json:"status" validate:"omitempty,oneof=Active Inactive"`
	ManagerID *int64    `json:"managerId"`
}

type ListFilter struct {
	Status    Status
	ManagerID int64
	Limit     int
	Offset    int
}
