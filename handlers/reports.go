// handlers/reports.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"p9e.in/villagepulse/config"
	"p9e.in/villagepulse/middleware"
	"p9e.in/villagepulse/models"
	"p9e.in/villagepulse/pkg/lifecycle"
	"p9e.in/villagepulse/utils"
)

// defaultAlertWindow is how far back the alert feeds look when the client
// does not pass an explicit cutoff.
const defaultAlertWindow = 24 * time.Hour

type createReportReq struct {
	Category    string           `json:"category" validate:"required"`
	Priority    string           `json:"priority"`
	Description string           `json:"description" validate:"required"`
	Latitude    float64          `json:"latitude"`
	Longitude   float64          `json:"longitude"`
	Village     string           `json:"village" validate:"max=100"`
	PhotoURLs   []string         `json:"photoUrls" validate:"max=10"`
	ReportedAt  *models.JSONTime `json:"reportedAt"`
}

// CreateReport files a new civic issue for the authenticated citizen and
// routes it to the department owning its category.
func CreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	in := lifecycle.CreateReportInput{
		SubmittedBy:    middleware.GetUserID(r),
		Category:       models.ReportCategory(req.Category),
		Priority:       models.ReportPriority(req.Priority),
		Description:    req.Description,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Village:        req.Village,
		PhotoURLs:      req.PhotoURLs,
		DepartmentCode: routeDepartment(models.ReportCategory(req.Category)),
	}
	if req.ReportedAt != nil {
		in.ReportedAt = req.ReportedAt.Time()
	}

	report, err := engine.CreateReport(r.Context(), in)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	NewNotificationService().NotifyNewReport(report)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Report submitted",
		"id":      report.ID,
	})
}

// routeDepartment finds the active department owning a category; nil when no
// department claims it, which leaves the report visible in the unrouted feed.
func routeDepartment(category models.ReportCategory) *string {
	var dept models.Department
	err := config.DB.
		Where("is_active = ? AND ? = ANY(categories)", true, string(category)).
		First(&dept).Error
	if err != nil {
		return nil
	}
	return &dept.Code
}

// GetReport returns one report by id.
func GetReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	report, err := engine.GetReport(r.Context(), id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListReports is the shared paged listing; citizens see everything, which is
// the point of a public civic feed.
func ListReports(w http.ResponseWriter, r *http.Request) {
	params, err := models.ParseReportParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := lifecycle.ReportQuery{
		SubmittedBy:   params.SubmittedBy,
		Status:        models.ReportStatus(params.Status),
		Category:      models.ReportCategory(params.Category),
		CreatedAfter:  params.StartDate,
		CreatedBefore: params.EndDate,
		Offset:        params.Offset(),
		Limit:         params.Limit,
	}
	reports, total, err := engine.ListReports(r.Context(), q)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
		"reports": reports,
	})
}

// MyReports lists the authenticated citizen's own submissions.
func MyReports(w http.ResponseWriter, r *http.Request) {
	params, err := models.ParseReportParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	q := lifecycle.ReportQuery{
		SubmittedBy: middleware.GetUserID(r),
		Status:      models.ReportStatus(params.Status),
		Offset:      params.Offset(),
		Limit:       params.Limit,
	}
	reports, total, err := engine.ListReports(r.Context(), q)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
		"reports": reports,
	})
}

// parseLocation reads latitude/longitude/radius (km, default 3) from the
// query string.
func parseLocation(r *http.Request) (lat, lng, radiusKm float64, err error) {
	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("latitude"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("longitude"), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, 0, fmt.Errorf("latitude and longitude query parameters are required")
	}
	if err := utils.ValidateCoordinates(lat, lng); err != nil {
		return 0, 0, 0, err
	}
	radiusKm = 3.0
	if v := q.Get("radius"); v != "" {
		rv, err := strconv.ParseFloat(v, 64)
		if err != nil || rv <= 0 || rv > 100 {
			return 0, 0, 0, fmt.Errorf("radius must be a number in (0, 100]")
		}
		radiusKm = rv
	}
	return lat, lng, radiusKm, nil
}

// NearbyReports returns reports within the proximity box of the given point.
func NearbyReports(w http.ResponseWriter, r *http.Request) {
	lat, lng, radiusKm, err := parseLocation(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reports, _, err := engine.ListReports(r.Context(), lifecycle.ReportQuery{})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	nearby := lifecycle.FilterByProximity(reports, lat, lng, radiusKm)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(nearby),
		"reports": nearby,
	})
}

// RecentAlerts lists new reports near the given point since a cutoff
// (default: the last 24 hours).
func RecentAlerts(w http.ResponseWriter, r *http.Request) {
	lat, lng, radiusKm, err := parseLocation(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	cutoff := time.Now().Add(-defaultAlertWindow)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "since must be RFC3339", http.StatusBadRequest)
			return
		}
		cutoff = t
	}

	reports, _, err := engine.ListReports(r.Context(), lifecycle.ReportQuery{CreatedAfter: &cutoff})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	recent := lifecycle.FilterByProximity(lifecycle.FilterSince(reports, cutoff), lat, lng, radiusKm)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(recent),
		"reports": recent,
	})
}

// SupportReport adds the caller as a supporter and returns the new count.
func SupportReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	count, err := engine.Support(r.Context(), id, middleware.GetUserID(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	if report, gerr := engine.GetReport(r.Context(), id); gerr == nil {
		NewNotificationService().NotifySupport(report, count)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":         "Report supported",
		"id":              id,
		"supportersCount": count,
	})
}

type feedbackReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment" validate:"max=2000"`
}

// SubmitFeedback records the submitter's rating on a resolved report.
func SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid report id", http.StatusBadRequest)
		return
	}
	var req feedbackReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	fb, err := engine.SubmitFeedback(r.Context(), id, req.Rating, req.Comment, middleware.GetActor(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}
