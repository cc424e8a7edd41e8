package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p9e.in/villagepulse/middleware"
	"p9e.in/villagepulse/models"
	"p9e.in/villagepulse/pkg/lifecycle"
)

// newTestRouter wires the report endpoints against an in-memory engine, with
// real JWT auth in front.
func newTestRouter(t *testing.T) (*mux.Router, *lifecycle.Engine) {
	t.Helper()
	eng := lifecycle.NewEngine(lifecycle.NewMemStore())
	SetEngine(eng)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)
	api.HandleFunc("/reports/{id}", GetReport).Methods("GET")
	api.HandleFunc("/reports/{id}/support", SupportReport).Methods("POST")
	api.HandleFunc("/reports/{id}/feedback", SubmitFeedback).Methods("POST")
	return r, eng
}

func seedPendingReport(t *testing.T, eng *lifecycle.Engine, submitter string) *models.Report {
	t.Helper()
	r, err := eng.CreateReport(context.Background(), lifecycle.CreateReportInput{
		SubmittedBy: submitter,
		Category:    models.CategoryElectricity,
		Description: "Street light out near the bus stand",
		Latitude:    17.4,
		Longitude:   78.5,
		Village:     "Rampur",
	})
	require.NoError(t, err)
	return r
}

func authedRequest(t *testing.T, method, url, body, userID, role string) *http.Request {
	t.Helper()
	token, err := middleware.GenerateToken(userID, role, "Test User", "9876543210", "")
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestGetReportHandler(t *testing.T) {
	router, eng := newTestRouter(t)
	report := seedPendingReport(t, eng, "user-1")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "GET", "/api/v1/reports/"+report.ID.String(), "", "user-1", models.RoleCitizen))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, models.StatusPending, got.Status)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "GET", "/api/v1/reports/"+uuid.NewString(), "", "user-1", models.RoleCitizen))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// No token at all.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/reports/"+report.ID.String(), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSupportReportHandler(t *testing.T) {
	router, eng := newTestRouter(t)
	report := seedPendingReport(t, eng, "user-1")
	url := "/api/v1/reports/" + report.ID.String() + "/support"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "POST", url, "", "user-2", models.RoleCitizen))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		SupportersCount int `json:"supportersCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.SupportersCount)

	// Same user again conflicts.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "POST", url, "", "user-2", models.RoleCitizen))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitFeedbackHandler(t *testing.T) {
	router, eng := newTestRouter(t)
	report := seedPendingReport(t, eng, "user-1")
	url := "/api/v1/reports/" + report.ID.String() + "/feedback"

	// Pending report cannot be rated yet.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "POST", url, `{"rating":5}`, "user-1", models.RoleCitizen))
	assert.Equal(t, http.StatusConflict, rec.Code)

	resolved := models.StatusResolved
	_, err := eng.DepartmentUpdateReport(context.Background(), report.ID,
		lifecycle.DepartmentPatch{Status: &resolved},
		lifecycle.Actor{ID: "staff-1", Role: models.RoleDepartment})
	require.NoError(t, err)

	// Someone else's report.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "POST", url, `{"rating":5}`, "user-2", models.RoleCitizen))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "POST", url, `{"rating":4,"comment":"good"}`, "user-1", models.RoleCitizen))
	require.Equal(t, http.StatusCreated, rec.Code)

	// One shot only.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(t, "POST", url, `{"rating":2}`, "user-1", models.RoleCitizen))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
