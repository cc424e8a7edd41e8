// models/report.go
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReportStatus is the citizen-visible lifecycle state of a report. The three
// values below are the only ones the lifecycle engine will ever write; any
// other value arriving in a request fails validation.
type ReportStatus string

const (
	StatusPending    ReportStatus = "Pending"
	StatusInProgress ReportStatus = "In Progress"
	StatusResolved   ReportStatus = "Resolved"
)

// KnownStatus reports whether s is a state the engine defines. Readers must
// tolerate unknown values (forward compatibility); writers must not.
func KnownStatus(s ReportStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// ReportCategory values match the category picker in the mobile clients.
type ReportCategory string

const (
	CategoryRoads       ReportCategory = "Roads & Infrastructure"
	CategoryWater       ReportCategory = "Water Supply"
	CategoryElectricity ReportCategory = "Electricity"
	CategorySanitation  ReportCategory = "Sanitation & Waste"
	CategorySafety      ReportCategory = "Public Safety"
	CategoryEnvironment ReportCategory = "Environmental"
	CategoryOther       ReportCategory = "Other"
)

// Categories lists every accepted report category.
func Categories() []ReportCategory {
	return []ReportCategory{
		CategoryRoads, CategoryWater, CategoryElectricity,
		CategorySanitation, CategorySafety, CategoryEnvironment, CategoryOther,
	}
}

// KnownCategory reports whether c is an accepted category.
func KnownCategory(c ReportCategory) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// ReportPriority is set at creation and adjustable by department staff.
type ReportPriority string

const (
	PriorityLow       ReportPriority = "Low"
	PriorityMedium    ReportPriority = "Medium"
	PriorityHigh      ReportPriority = "High"
	PriorityEmergency ReportPriority = "Emergency"
)

// KnownPriority reports whether p is an accepted priority.
func KnownPriority(p ReportPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

// Report is a citizen-submitted civic issue. Status, assignment and rating
// fields are mutated only through the lifecycle engine; Version backs the
// engine's conditional writes and increments on every successful mutation.
type Report struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SubmittedBy string         `gorm:"size:64;index;not null" json:"submittedBy"`
	Category    ReportCategory `gorm:"size:50;index;not null" json:"category"`
	Priority    ReportPriority `gorm:"size:20;not null;default:'Medium'" json:"priority"`
	Description string         `gorm:"type:text;not null" json:"description"`

	Latitude  float64 `gorm:"not null" json:"latitude"`
	Longitude float64 `gorm:"not null" json:"longitude"`
	Village   string  `gorm:"size:100" json:"village,omitempty"`

	PhotoURLs pq.StringArray `gorm:"type:text[]" json:"photoUrls"`

	Status         ReportStatus `gorm:"size:20;index;not null;default:'Pending'" json:"status"`
	DepartmentCode *string      `gorm:"size:50;index" json:"departmentCode,omitempty"`

	AssignedWorkerID *string    `gorm:"size:64;index" json:"assignedWorkerId,omitempty"`
	AssignmentID     *uuid.UUID `gorm:"type:uuid" json:"assignmentId,omitempty"`

	// TeamLead carries the free-text dispatch note department staff attach to
	// call-in reports that never get a digital worker assignment.
	TeamLead string `gorm:"size:100" json:"teamLead,omitempty"`

	SupportersCount int `gorm:"not null;default:0" json:"supportersCount"`

	Rating   *int       `json:"rating,omitempty"`
	Feedback string     `gorm:"type:text" json:"feedback,omitempty"`
	RatedAt  *time.Time `json:"ratedAt,omitempty"`

	ResolutionNote      string         `gorm:"type:text" json:"resolutionNote,omitempty"`
	ResolutionPhotoURLs pq.StringArray `gorm:"type:text[]" json:"resolutionPhotoUrls"`

	// ReporterDetails holds caller name/phone for call-in reports.
	ReporterDetails datatypes.JSON `gorm:"type:jsonb" json:"reporterDetails,omitempty"`

	ReportedAt JSONTime `gorm:"not null" json:"reportedAt"`
	Version    int64    `gorm:"not null;default:1" json:"-"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (r *Report) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}

// ReportSupporter records one distinct supporter of a report. The composite
// unique index is what makes double-support impossible under concurrency.
type ReportSupporter struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ReportID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_report_supporter" json:"reportId"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_report_supporter" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
