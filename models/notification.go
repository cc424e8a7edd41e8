package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType tags what lifecycle event produced a notification.
type NotificationType string

const (
	NotificationReportAssigned  NotificationType = "report_assigned"
	NotificationReportUpdated   NotificationType = "report_updated"
	NotificationReportResolved  NotificationType = "report_resolved"
	NotificationReportSupported NotificationType = "report_supported"
	NotificationNewReport       NotificationType = "new_report"
)

// NotificationStatus tracks best-effort delivery. Delivery failure is recorded
// but never fails the mutation that triggered the notification.
type NotificationStatus string

const (
	NotificationPending NotificationStatus = "pending"
	NotificationSent    NotificationStatus = "sent"
	NotificationRead    NotificationStatus = "read"
	NotificationFailed  NotificationStatus = "failed"
)

// Notification is an in-app notification instance for one recipient.
type Notification struct {
	ID       uuid.UUID          `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   string             `gorm:"size:64;index;not null" json:"userId"`
	Type     NotificationType   `gorm:"size:50;index;not null" json:"type"`
	Title    string             `gorm:"size:255;not null" json:"title"`
	Body     string             `gorm:"type:text;not null" json:"body"`
	ReportID *uuid.UUID         `gorm:"type:uuid;index" json:"reportId,omitempty"`
	Metadata datatypes.JSON     `gorm:"type:jsonb" json:"metadata,omitempty"`
	Status   NotificationStatus `gorm:"size:20;index;not null;default:'pending'" json:"status"`
	SentAt   *time.Time         `json:"sentAt,omitempty"`
	ReadAt   *time.Time         `json:"readAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return
}

// MarkAsSent records successful best-effort delivery.
func (n *Notification) MarkAsSent() {
	now := time.Now()
	n.SentAt = &now
	n.Status = NotificationSent
}

// MarkAsFailed records a delivery attempt that could not reach the recipient's
// devices. The row stays visible in the in-app inbox.
func (n *Notification) MarkAsFailed() {
	n.Status = NotificationFailed
}

// MarkAsRead records that the recipient opened the notification.
func (n *Notification) MarkAsRead() {
	now := time.Now()
	n.ReadAt = &now
	n.Status = NotificationRead
}
