package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"p9e.in/villagepulse/models"
)

func Migrations(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20250301_create_core_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{}, &models.Department{}, &models.Report{},
					&models.ReportSupporter{}, &models.Assignment{}, &models.Feedback{})
			},
		},
		{
			ID: "20250315_add_notification_tables",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Notification{}, &models.DeviceToken{})
			},
		},
		{
			ID: "20250402_backfill_report_versions",
			Migrate: func(tx *gorm.DB) error {
				// Rows created before conditional writes landed have version 0.
				return tx.Exec("UPDATE reports SET version = 1 WHERE version IS NULL OR version = 0").Error
			},
		},
		{
			ID: "20250506_index_reports_for_feeds",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_reports_status_created ON reports (status, created_at DESC)").Error; err != nil {
					return err
				}
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_reports_dept_created ON reports (department_code, created_at DESC)").Error
			},
		},
	})
	return m.Migrate()
}
