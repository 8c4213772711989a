package migrations

import (
	"github.com/courseops/admin-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createBulkRunsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_bulk_runs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BulkRunModel{}); err != nil {
				return err
			}
			indexes := []string{
				`CREATE INDEX IF NOT EXISTS idx_bulk_runs_tenant_created ON bulk_runs (tenant_id, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_bulk_runs_summary ON bulk_runs (summary)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BulkRunModel{})
		},
	}
}
