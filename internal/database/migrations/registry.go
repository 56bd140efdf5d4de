// Package migrations provides database migration management for linarr.
package migrations

import (
	"gorm.io/gorm"

	"github.com/linarr/linarr/internal/models"
)

// AllMigrations returns all registered migrations in order.
// - 001: Schema creation using GORM AutoMigrate
// - 002: Default development tenant
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
		migration002DefaultTenant(),
	}
}

// migration001Schema creates all database tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create all database tables",
		Up: func(tx *gorm.DB) error {
			// AutoMigrate all models in dependency order
			return tx.AutoMigrate(
				&models.Tenant{},
				&models.Tag{},
				&models.Friend{},
				&models.AutoResponseRule{},
				&models.TriggerCounter{},
				&models.ResponseLog{},
			)
		},
		Down: func(tx *gorm.DB) error {
			// Drop tables in reverse dependency order
			tables := []string{
				"response_logs",
				"trigger_counters",
				"auto_response_rules",
				"friend_tags",
				"friends",
				"tags",
				"tenants",
			}
			for _, table := range tables {
				if tx.Migrator().HasTable(table) {
					if err := tx.Migrator().DropTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

// migration002DefaultTenant seeds a tenant so a fresh install can accept
// messages before any provisioning API call.
func migration002DefaultTenant() Migration {
	return Migration{
		Version:     "002",
		Description: "Seed default tenant",
		Up: func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&models.Tenant{}).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
			return tx.Create(&models.Tenant{Name: "default"}).Error
		},
		Down: func(tx *gorm.DB) error {
			return tx.Where("name = ?", "default").Delete(&models.Tenant{}).Error
		},
	}
}
