// handlers/notifications.go
package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"p9e.in/villagepulse/config"
	"p9e.in/villagepulse/middleware"
	"p9e.in/villagepulse/models"
)

// MyNotifications lists the caller's notifications, newest first.
func MyNotifications(w http.ResponseWriter, r *http.Request) {
	var notifications []models.Notification
	err := config.DB.
		Where("user_id = ?", middleware.GetUserID(r)).
		Order("created_at DESC").
		Limit(100).
		Find(&notifications).Error
	if err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	unread := 0
	for _, n := range notifications {
		if n.ReadAt == nil {
			unread++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"unread": unread,
		"data":   notifications,
	})
}

// MarkNotificationRead marks one of the caller's notifications as read.
func MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid notification id", http.StatusBadRequest)
		return
	}

	var n models.Notification
	if err := config.DB.First(&n, "id = ? AND user_id = ?", id, middleware.GetUserID(r)).Error; err != nil {
		http.Error(w, "notification not found", http.StatusNotFound)
		return
	}
	if n.ReadAt == nil {
		n.MarkAsRead()
		if err := config.DB.Save(&n).Error; err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, http.StatusOK, n)
}
