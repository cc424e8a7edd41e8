package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"p9e.in/villagepulse/handlers"
	"p9e.in/villagepulse/middleware"
	"p9e.in/villagepulse/models"
)

// RegisterRoutes sets up all application routes
func RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/register", handlers.Register).Methods("POST")
	r.HandleFunc("/login", handlers.Login).Methods("POST")
	r.Handle("/token", middleware.JWTMiddleware(http.HandlerFunc(handlers.GetCurrentUser))).Methods("GET")
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir("./uploads"))),
	)

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	api.HandleFunc("/departments", handlers.ListDepartments).Methods("GET")
	api.HandleFunc("/files/upload", handlers.UploadFileHandler).Methods("POST")

	// Citizen surface
	api.HandleFunc("/reports", handlers.CreateReport).Methods("POST")
	api.HandleFunc("/reports", handlers.ListReports).Methods("GET")
	api.HandleFunc("/reports/my", handlers.MyReports).Methods("GET")
	api.HandleFunc("/reports/nearby", handlers.NearbyReports).Methods("GET")
	api.HandleFunc("/reports/alerts", handlers.RecentAlerts).Methods("GET")
	api.HandleFunc("/reports/{id}", handlers.GetReport).Methods("GET")
	api.HandleFunc("/reports/{id}/support", handlers.SupportReport).Methods("POST")
	api.HandleFunc("/reports/{id}/feedback", handlers.SubmitFeedback).Methods("POST")

	api.HandleFunc("/notifications", handlers.MyNotifications).Methods("GET")
	api.HandleFunc("/notifications/{id}/read", handlers.MarkNotificationRead).Methods("POST")

	// Worker surface
	worker := api.PathPrefix("/assignments").Subrouter()
	worker.Handle("/my", middleware.RequireRole(
		[]string{models.RoleWorker},
		http.HandlerFunc(handlers.MyAssignments))).Methods("GET")
	worker.Handle("/{id}", middleware.RequireRole(
		[]string{models.RoleWorker},
		http.HandlerFunc(handlers.UpdateAssignment))).Methods("PATCH")

	// Department surface
	staffRoles := []string{models.RoleDepartment, models.RoleLeader}
	dept := api.PathPrefix("/departments").Subrouter()
	dept.Handle("/reports", middleware.RequireRole(staffRoles,
		http.HandlerFunc(handlers.DepartmentReports))).Methods("GET")
	dept.Handle("/reports/alerts", middleware.RequireRole(staffRoles,
		http.HandlerFunc(handlers.DepartmentAlerts))).Methods("GET")
	dept.Handle("/reports/past", middleware.RequireRole(staffRoles,
		http.HandlerFunc(handlers.PastReports))).Methods("GET")
	dept.Handle("/reports/{id}", middleware.RequireRole(staffRoles,
		http.HandlerFunc(handlers.PatchReport))).Methods("PATCH")
	dept.Handle("/reports/{id}/assign", middleware.RequireRole(staffRoles,
		http.HandlerFunc(handlers.AssignReport))).Methods("PATCH")
	dept.Handle("/reports/{id}/feedback", middleware.RequireRole(staffRoles,
		http.HandlerFunc(handlers.ReportFeedbackList))).Methods("GET")
	dept.Handle("/device/register", middleware.RequireRole(staffRoles,
		http.HandlerFunc(handlers.RegisterDevice))).Methods("POST")
	dept.Handle("/{departmentId}/call-report", middleware.RequireRole(staffRoles,
		http.HandlerFunc(handlers.CallInReport))).Methods("POST")

	// Leadership surface
	leadership := api.PathPrefix("/leadership").Subrouter()
	leadership.Handle("/dashboard", middleware.RequireRole(staffRoles,
		http.HandlerFunc(handlers.LeadershipDashboard))).Methods("GET")
	leadership.Handle("/dashboard/live", middleware.RequireRole(staffRoles,
		http.HandlerFunc(handlers.WatchDashboard))).Methods("GET")
	leadership.Handle("/dashboard/export", middleware.RequireRole(
		[]string{models.RoleLeader},
		http.HandlerFunc(handlers.ExportReports))).Methods("GET")

	return r
}
