package models

import (
	"time"

	"github.com/lib/pq"
)

// Department is a village department that triages and resolves reports.
// Reports are routed to a department by category at creation time.
type Department struct {
	Code       string         `gorm:"size:50;primaryKey" json:"code"`
	Name       string         `gorm:"size:100;not null" json:"name"`
	Categories pq.StringArray `gorm:"type:text[]" json:"categories"`
	IsActive   bool           `gorm:"default:true" json:"isActive"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// DeviceToken registers a department device for best-effort push alerts.
type DeviceToken struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	DepartmentCode string    `gorm:"size:50;index;not null" json:"departmentCode"`
	UserID         string    `gorm:"size:64;index" json:"userId"`
	Token          string    `gorm:"size:255;uniqueIndex;not null" json:"token"`
	CreatedAt      time.Time `json:"createdAt"`
}
