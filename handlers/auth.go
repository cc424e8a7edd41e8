// handlers/auth.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"p9e.in/villagepulse/config"
	"p9e.in/villagepulse/middleware"
	"p9e.in/villagepulse/models"
)

var validate = validator.New()

type registerReq struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=10,max=15"`
	Password string `json:"password" validate:"required,min=8"`
	Village  string `json:"village" validate:"max=100"`
}

// Register creates a citizen account. Staff accounts (worker, department,
// leader) are provisioned administratively, never through this endpoint.
func Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}
	// hash pw
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "error hashing password", http.StatusInternalServerError)
		return
	}
	u := models.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         models.RoleCitizen,
		Village:      req.Village,
		IsActive:     true,
	}
	if err := config.DB.Create(&u).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			http.Error(w, "phone or email already registered", http.StatusConflict)
		} else {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
}

type loginReq struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginResp struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}
type userPayload struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Role           string    `json:"role"`
	DepartmentCode string    `json:"departmentCode,omitempty"`
}

func Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	var u models.User
	if err := config.DB.Where("phone = ? AND is_active = ?", req.Phone, true).First(&u).Error; err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	// Never mint a token for a role this service does not know.
	if !models.ValidRole(u.Role) {
		http.Error(w, "account role is not provisioned for this service", http.StatusForbidden)
		return
	}
	// Only staff act on behalf of a department, so only their tokens carry
	// the department claim.
	dept := ""
	if u.IsStaff() && u.DepartmentCode != nil {
		dept = *u.DepartmentCode
	}
	token, err := middleware.GenerateToken(u.ID.String(), u.Role, u.Name, u.Phone, dept)
	if err != nil {
		http.Error(w, "couldn't create token", http.StatusInternalServerError)
		return
	}
	out := loginResp{
		Token: token,
		User: userPayload{
			ID:             u.ID,
			Name:           u.Name,
			Email:          u.Email,
			Phone:          u.Phone,
			Role:           u.Role,
			DepartmentCode: dept,
		},
	}
	json.NewEncoder(w).Encode(out)
}

// GetCurrentUser resolves the bearer token back to the user record.
func GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", claims.UserID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	resp := map[string]interface{}{
		"id":      user.ID,
		"name":    user.Name,
		"phone":   user.Phone,
		"email":   user.Email,
		"role":    user.Role,
		"village": user.Village,
	}
	if user.DepartmentCode != nil {
		resp["departmentCode"] = *user.DepartmentCode
	}
	json.NewEncoder(w).Encode(resp)
}
