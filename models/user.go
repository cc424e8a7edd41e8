// models/user.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role values carried in the JWT and trusted as-is by the lifecycle engine.
// Role changes are an administrative action outside this service.
const (
	RoleCitizen    = "citizen"
	RoleWorker     = "worker"
	RoleDepartment = "department"
	RoleLeader     = "leader"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	Email          string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Phone          string    `gorm:"size:15;uniqueIndex;not null" json:"phone"`
	PasswordHash   string    `gorm:"size:255;not null" json:"-"`
	Role           string    `gorm:"size:20;not null;default:'citizen'" json:"role"`
	DepartmentCode *string   `gorm:"size:50;index" json:"departmentCode,omitempty"`
	Village        string    `gorm:"size:100" json:"village,omitempty"`
	IsActive       bool      `gorm:"default:true" json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return
}

// ValidRole reports whether r is one of the four known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleCitizen, RoleWorker, RoleDepartment, RoleLeader:
		return true
	}
	return false
}

// IsStaff reports whether the role may act on behalf of a department.
func (u *User) IsStaff() bool {
	return u.Role == RoleDepartment || u.Role == RoleLeader
}
