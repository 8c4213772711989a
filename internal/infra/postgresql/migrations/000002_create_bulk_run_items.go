package migrations

import (
	"github.com/courseops/admin-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createBulkRunItemsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_bulk_run_items",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BulkRunItemModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_bulk_run_items_run_position ON bulk_run_items (run_id, position)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BulkRunItemModel{})
		},
	}
}
