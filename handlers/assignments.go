// handlers/assignments.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"p9e.in/villagepulse/middleware"
	"p9e.in/villagepulse/models"
)

// MyAssignments lists the authenticated worker's assignments, newest first.
func MyAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := engine.WorkerAssignments(r.Context(), middleware.GetUserID(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

type updateAssignmentReq struct {
	Status         string `json:"status" validate:"required"`
	ResolutionNote string `json:"resolutionNote" validate:"max=2000"`
}

// UpdateAssignment advances the caller's assignment and reports the mirrored
// report status so the worker app can refresh both cards from one response.
func UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid assignment id", http.StatusBadRequest)
		return
	}
	var req updateAssignmentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	assignment, reportStatus, err := engine.UpdateAssignmentStatus(
		r.Context(), id, models.AssignmentStatus(req.Status), req.ResolutionNote, middleware.GetActor(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	if assignment.Status == models.AssignmentCompleted {
		if report, gerr := engine.GetReport(r.Context(), assignment.ReportID); gerr == nil {
			NewNotificationService().NotifyStatusChange(report)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"assignment":           assignment,
		"mirroredReportStatus": reportStatus,
	})
}
