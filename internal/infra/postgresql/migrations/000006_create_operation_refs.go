package migrations

import (
	"github.com/courseops/admin-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createOperationRefsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000006_create_operation_refs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.OperationRefModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_operation_refs_status ON operation_refs (status)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.OperationRefModel{})
		},
	}
}
