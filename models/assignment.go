// models/assignment.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssignmentStatus is the worker-facing sub-lifecycle of a dispatched report.
// It advances strictly Pending -> Active -> Completed and mirrors into the
// parent report (Active -> In Progress, Completed -> Resolved).
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "Pending"
	AssignmentActive    AssignmentStatus = "Active"
	AssignmentCompleted AssignmentStatus = "Completed"
)

// KnownAssignmentStatus reports whether s is a defined assignment state.
func KnownAssignmentStatus(s AssignmentStatus) bool {
	switch s {
	case AssignmentPending, AssignmentActive, AssignmentCompleted:
		return true
	}
	return false
}

// Assignment is the dispatch of exactly one report to one worker.
type Assignment struct {
	ID       uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ReportID uuid.UUID        `gorm:"type:uuid;uniqueIndex;not null" json:"reportId"`
	WorkerID string           `gorm:"size:64;index;not null" json:"workerId"`
	Status   AssignmentStatus `gorm:"size:20;index;not null;default:'Pending'" json:"status"`

	// Denormalized from the report so worker dashboards render without a join.
	Title    string         `gorm:"size:255" json:"title"`
	Priority ReportPriority `gorm:"size:20" json:"priority"`
	Location string         `gorm:"size:255" json:"location"`

	AssignedBy  string     `gorm:"size:64;not null" json:"assignedBy"`
	AssignedAt  time.Time  `gorm:"not null" json:"assignedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	Version int64 `gorm:"not null;default:1" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}
