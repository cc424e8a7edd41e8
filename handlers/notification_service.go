// handlers/notification_service.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"gorm.io/gorm"

	"p9e.in/villagepulse/config"
	"p9e.in/villagepulse/models"
)

// NotificationService persists in-app notifications and pushes best-effort
// alerts to registered department devices. Every method is fire-and-forget:
// a delivery failure is logged, never propagated to the mutation that
// triggered it.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService() *NotificationService {
	return &NotificationService{db: config.DB}
}

// NotifyNewReport alerts the owning department that a report landed in its
// queue.
func (ns *NotificationService) NotifyNewReport(report *models.Report) {
	if ns.db == nil {
		return
	}
	if report.DepartmentCode == nil {
		log.Printf("[NOTIFY] report %s has no department, skipping new-report alert", report.ID)
		return
	}

	var staff []models.User
	err := ns.db.Where("role = ? AND department_code = ? AND is_active = ?",
		models.RoleDepartment, *report.DepartmentCode, true).Find(&staff).Error
	if err != nil {
		log.Printf("[NOTIFY] load department staff: %v", err)
		return
	}

	title := fmt.Sprintf("New %s report", report.Category)
	body := fmt.Sprintf("%s in %s (%s priority)", truncate(report.Description, 120), report.Village, report.Priority)
	for _, u := range staff {
		ns.create(u.ID.String(), models.NotificationNewReport, title, body, report)
	}
	ns.pushToDepartment(*report.DepartmentCode, title, body)
}

// NotifyAssignment tells the worker a job was dispatched to them.
func (ns *NotificationService) NotifyAssignment(assignment *models.Assignment, report *models.Report) {
	if ns.db == nil {
		return
	}
	title := "New assignment"
	body := fmt.Sprintf("%s (%s priority)", assignment.Title, assignment.Priority)
	ns.create(assignment.WorkerID, models.NotificationReportAssigned, title, body, report)
}

// NotifyStatusChange tells the submitter their report moved. Synthetic call-in
// submitters have no inbox, so those are skipped.
func (ns *NotificationService) NotifyStatusChange(report *models.Report) {
	if ns.db == nil || strings.HasPrefix(report.SubmittedBy, "phone_") {
		return
	}

	typ := models.NotificationReportUpdated
	title := "Report update"
	body := fmt.Sprintf("Your %s report is now %s", report.Category, report.Status)
	if report.Status == models.StatusResolved {
		typ = models.NotificationReportResolved
		title = "Report resolved"
		body = fmt.Sprintf("Your %s report was resolved. Tell us how we did.", report.Category)
	}
	ns.create(report.SubmittedBy, typ, title, body, report)
}

// NotifySupport tells the submitter their report picked up another supporter.
// Synthetic call-in submitters have no inbox, so those are skipped.
func (ns *NotificationService) NotifySupport(report *models.Report, supporters int) {
	if ns.db == nil || strings.HasPrefix(report.SubmittedBy, "phone_") {
		return
	}
	title := "Your report has support"
	body := fmt.Sprintf("%d supporter(s) now back your %s report", supporters, report.Category)
	ns.create(report.SubmittedBy, models.NotificationReportSupported, title, body, report)
}

func (ns *NotificationService) create(userID string, typ models.NotificationType, title, body string, report *models.Report) {
	meta, _ := json.Marshal(map[string]string{
		"status":   string(report.Status),
		"category": string(report.Category),
	})
	n := models.Notification{
		UserID:   userID,
		Type:     typ,
		Title:    title,
		Body:     body,
		ReportID: &report.ID,
		Metadata: meta,
		Status:   models.NotificationPending,
	}
	if err := ns.db.Create(&n).Error; err != nil {
		log.Printf("[NOTIFY] persist notification for %s: %v", userID, err)
		return
	}
	ns.deliver(&n)
}

// deliver attempts the best-effort push for one notification and records the
// outcome on the row. A failed push marks the row failed; the recipient still
// sees it in-app.
func (ns *NotificationService) deliver(n *models.Notification) {
	if err := ns.push(n); err != nil {
		log.Printf("[NOTIFY] push %s to %s: %v", n.Type, n.UserID, err)
		n.MarkAsFailed()
	} else {
		n.MarkAsSent()
	}
	err := ns.db.Model(n).Updates(map[string]interface{}{
		"status":  n.Status,
		"sent_at": n.SentAt,
	}).Error
	if err != nil {
		log.Printf("[NOTIFY] record delivery of %s: %v", n.ID, err)
	}
}

// push fans the notification out to the recipient's registered devices. The
// transport is a stub that logs; swapping in FCM later only touches this
// method. Zero registered devices is not a failure, the in-app row still
// lands.
func (ns *NotificationService) push(n *models.Notification) error {
	var tokens []models.DeviceToken
	if err := ns.db.Where("user_id = ?", n.UserID).Find(&tokens).Error; err != nil {
		return err
	}
	for _, t := range tokens {
		log.Printf("[PUSH] user=%s token=%s title=%q", n.UserID, truncate(t.Token, 12), n.Title)
	}
	return nil
}

// pushToDepartment fans the alert out to the department's registered devices.
// The push transport is a stub that logs; swapping in FCM later only touches
// this method.
func (ns *NotificationService) pushToDepartment(departmentCode, title, body string) {
	var tokens []models.DeviceToken
	if err := ns.db.Where("department_code = ?", departmentCode).Find(&tokens).Error; err != nil {
		log.Printf("[NOTIFY] load device tokens for %s: %v", departmentCode, err)
		return
	}
	for _, t := range tokens {
		log.Printf("[PUSH] dept=%s token=%s title=%q body=%q", departmentCode, truncate(t.Token, 12), title, body)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
