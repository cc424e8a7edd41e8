package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p9e.in/villagepulse/middleware"
	"p9e.in/villagepulse/models"
	"p9e.in/villagepulse/pkg/lifecycle"
)

func newDepartmentRouter(t *testing.T) (*mux.Router, *lifecycle.Engine) {
	t.Helper()
	eng := lifecycle.NewEngine(lifecycle.NewMemStore())
	SetEngine(eng)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)
	staff := []string{models.RoleDepartment, models.RoleLeader}
	api.Handle("/departments/reports/{id}/assign", middleware.RequireRole(staff,
		http.HandlerFunc(AssignReport))).Methods("PATCH")
	return r, eng
}

func TestAssignReportHandler(t *testing.T) {
	router, eng := newDepartmentRouter(t)
	report := seedPendingReport(t, eng, "user-1")
	url := "/api/v1/departments/reports/" + report.ID.String() + "/assign"

	// Citizens cannot dispatch.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "PATCH", url, `{"workerId":"crew-7"}`, "user-1", models.RoleCitizen))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "PATCH", url, `{"workerId":"crew-7"}`, "staff-1", models.RoleDepartment))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID               string         `json:"id"`
		AssignedWorkerID string         `json:"assignedWorkerId"`
		Report           *models.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, report.ID.String(), resp.ID)
	assert.Equal(t, "crew-7", resp.AssignedWorkerID)
	require.NotNil(t, resp.Report)
	assert.Equal(t, models.StatusInProgress, resp.Report.Status)

	// Already dispatched.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "PATCH", url, `{"workerId":"crew-8"}`, "staff-1", models.RoleDepartment))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
