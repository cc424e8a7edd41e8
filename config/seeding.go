package config

import (
	"log"
	"os"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"

	"p9e.in/villagepulse/models"
)

// SeedDepartments upserts the village departments and their category routing.
// Safe to run on every boot.
func SeedDepartments() {
	departments := []models.Department{
		{Code: "public_works", Name: "Public Works", Categories: pq.StringArray{
			string(models.CategoryRoads),
		}},
		{Code: "water", Name: "Water Supply", Categories: pq.StringArray{
			string(models.CategoryWater),
		}},
		{Code: "electricity", Name: "Electricity Board", Categories: pq.StringArray{
			string(models.CategoryElectricity),
		}},
		{Code: "sanitation", Name: "Sanitation & Waste", Categories: pq.StringArray{
			string(models.CategorySanitation), string(models.CategoryEnvironment),
		}},
		{Code: "safety", Name: "Public Safety", Categories: pq.StringArray{
			string(models.CategorySafety),
		}},
		{Code: "general", Name: "General Administration", Categories: pq.StringArray{
			string(models.CategoryOther),
		}},
	}

	for i := range departments {
		departments[i].IsActive = true
		err := DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "categories", "is_active"}),
		}).Create(&departments[i]).Error
		if err != nil {
			log.Printf("[SEED] department %s failed: %v", departments[i].Code, err)
		}
	}

	seedDemoStaff()
}

// seedDemoStaff creates one login per staff role for local development. It is
// skipped unless SEED_DEMO_USERS=true.
func seedDemoStaff() {
	if os.Getenv("SEED_DEMO_USERS") != "true" {
		return
	}

	general := "general"
	staff := []struct {
		user     models.User
		password string
	}{
		{models.User{Name: "Demo Department", Phone: "9000000001", Role: models.RoleDepartment, DepartmentCode: &general}, "department123"},
		{models.User{Name: "Demo Worker", Phone: "9000000002", Role: models.RoleWorker, DepartmentCode: &general}, "worker123"},
		{models.User{Name: "Demo Leader", Phone: "9000000003", Role: models.RoleLeader}, "leader123"},
	}

	for _, s := range staff {
		var existing models.User
		if err := DB.Where("phone = ?", s.user.Phone).First(&existing).Error; err == nil {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(s.password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[SEED] hash for %s failed: %v", s.user.Phone, err)
			continue
		}
		s.user.PasswordHash = string(hash)
		s.user.IsActive = true
		if err := DB.Create(&s.user).Error; err != nil {
			log.Printf("[SEED] user %s failed: %v", s.user.Phone, err)
		}
	}
	log.Println("[SEED] demo staff accounts ready")
}
