// handlers/departments.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"gorm.io/gorm/clause"

	"p9e.in/villagepulse/config"
	"p9e.in/villagepulse/middleware"
	"p9e.in/villagepulse/models"
	"p9e.in/villagepulse/pkg/lifecycle"
)

// ListDepartments returns the active departments and their category routing.
func ListDepartments(w http.ResponseWriter, r *http.Request) {
	var departments []models.Department
	if err := config.DB.Where("is_active = ?", true).Order("code").Find(&departments).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, departments)
}

// departmentScope builds the feed query for the caller's department. Leaders
// see everything; department staff see their own queue plus unrouted reports.
func departmentScope(r *http.Request) lifecycle.ReportQuery {
	claims := middleware.GetClaims(r)
	q := lifecycle.ReportQuery{}
	if claims != nil && claims.Role == models.RoleDepartment && claims.DepartmentCode != "" {
		q.DepartmentCode = claims.DepartmentCode
		q.UnroutedOrPending = true
	}
	return q
}

// DepartmentReports is the triage queue: open reports for this department.
func DepartmentReports(w http.ResponseWriter, r *http.Request) {
	params, err := models.ParseReportParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := departmentScope(r)
	q.Status = models.ReportStatus(params.Status)
	q.Category = models.ReportCategory(params.Category)
	q.CreatedAfter = params.StartDate
	q.CreatedBefore = params.EndDate
	q.Offset = params.Offset()
	q.Limit = params.Limit

	reports, total, err := engine.ListReports(r.Context(), q)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
		"data":  reports,
	})
}

// DepartmentAlerts surfaces still-pending reports filed inside the alert
// window for this department, for the triage home screen.
func DepartmentAlerts(w http.ResponseWriter, r *http.Request) {
	window := defaultAlertWindow
	if v := r.URL.Query().Get("hours"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h < 1 || h > 24*7 {
			http.Error(w, "hours must be between 1 and 168", http.StatusBadRequest)
			return
		}
		window = time.Duration(h) * time.Hour
	}
	cutoff := time.Now().Add(-window)

	q := departmentScope(r)
	q.Status = models.StatusPending
	q.CreatedAfter = &cutoff
	reports, _, err := engine.ListReports(r.Context(), q)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(reports),
		"data":  reports,
	})
}

// PastReports lists this department's resolved history.
func PastReports(w http.ResponseWriter, r *http.Request) {
	params, err := models.ParseReportParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := departmentScope(r)
	q.Status = models.StatusResolved
	q.Category = models.ReportCategory(params.Category)
	q.CreatedAfter = params.StartDate
	q.CreatedBefore = params.EndDate
	q.Offset = params.Offset()
	q.Limit = params.Limit

	reports, total, err := engine.ListReports(r.Context(), q)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
		"data":  reports,
	})
}

type patchReportReq struct {
	Status              *string  `json:"status"`
	Priority            *string  `json:"priority"`
	TeamLead            *string  `json:"teamLead" validate:"omitempty,max=100"`
	ResolutionNote      *string  `json:"resolutionNote" validate:"omitempty,max=2000"`
	ResolutionPhotoURLs []string `json:"resolutionImageUrls" validate:"max=10"`
}

// PatchReport applies a department-direct update, including the lifecycle
// shortcut for call-in reports.
func PatchReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	var req patchReportReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	patch := lifecycle.DepartmentPatch{
		TeamLead:            req.TeamLead,
		ResolutionNote:      req.ResolutionNote,
		ResolutionPhotoURLs: req.ResolutionPhotoURLs,
	}
	if req.Status != nil {
		s := models.ReportStatus(*req.Status)
		patch.Status = &s
	}
	if req.Priority != nil {
		p := models.ReportPriority(*req.Priority)
		patch.Priority = &p
	}

	report, err := engine.DepartmentUpdateReport(r.Context(), id, patch, middleware.GetActor(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if patch.Status != nil {
		NewNotificationService().NotifyStatusChange(report)
	}
	writeJSON(w, http.StatusOK, report)
}

type assignReq struct {
	WorkerID string `json:"workerId" validate:"required"`
}

// AssignReport dispatches a pending report to a worker.
func AssignReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	var req assignReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	assignment, report, err := engine.Assign(r.Context(), id, req.WorkerID, middleware.GetActor(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	NewNotificationService().NotifyAssignment(assignment, report)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":               report.ID,
		"assignedWorkerId": assignment.WorkerID,
		"assignment":       assignment,
		"report":           report,
	})
}

// ReportFeedbackList returns citizen feedback on one report.
func ReportFeedbackList(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	fs, err := engine.ReportFeedback(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fs)
}

type callReportReq struct {
	CallerName  string  `json:"callerName" validate:"required,max=100"`
	CallerPhone string  `json:"callerPhone" validate:"required,min=10,max=15"`
	Category    string  `json:"category" validate:"required"`
	Priority    string  `json:"priority"`
	Description string  `json:"description" validate:"required"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Village     string  `json:"village" validate:"max=100"`
	TeamLead    string  `json:"teamLead" validate:"max=100"`
}

// CallInReport files a report phoned in to the department desk on behalf of a
// caller who has no account. The synthetic submitter id keeps call-in history
// queryable per phone number; the department comes from the path, not the
// category map, so the desk that took the call owns the report.
func CallInReport(w http.ResponseWriter, r *http.Request) {
	departmentID := mux.Vars(r)["departmentId"]
	var dept models.Department
	if err := config.DB.First(&dept, "code = ? AND is_active = ?", departmentID, true).Error; err != nil {
		http.Error(w, "department not found", http.StatusNotFound)
		return
	}

	var req callReportReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	details, _ := json.Marshal(map[string]string{
		"name":       req.CallerName,
		"phone":      req.CallerPhone,
		"receivedBy": middleware.GetUserID(r),
	})

	in := lifecycle.CreateReportInput{
		SubmittedBy:     "phone_" + req.CallerPhone,
		Category:        models.ReportCategory(req.Category),
		Priority:        models.ReportPriority(req.Priority),
		Description:     req.Description,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		Village:         req.Village,
		DepartmentCode:  &dept.Code,
		ReporterDetails: details,
	}
	report, err := engine.CreateReport(r.Context(), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if req.TeamLead != "" {
		report, err = engine.DepartmentUpdateReport(r.Context(), report.ID,
			lifecycle.DepartmentPatch{TeamLead: &req.TeamLead}, middleware.GetActor(r))
		if err != nil {
			writeEngineError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, report)
}

type registerDeviceReq struct {
	DeviceToken string `json:"deviceToken" validate:"required,max=255"`
}

// RegisterDevice saves a department device token for push alerts.
func RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	claims := middleware.GetClaims(r)
	dt := models.DeviceToken{
		DepartmentCode: claims.DepartmentCode,
		UserID:         claims.UserID,
		Token:          req.DeviceToken,
	}
	err := config.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"department_code", "user_id"}),
	}).Create(&dt).Error
	if err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, dt)
}
