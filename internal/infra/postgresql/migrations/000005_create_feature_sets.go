package migrations

import (
	"github.com/courseops/admin-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createFeatureSetsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000005_create_feature_sets",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.FeatureSetModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.FeatureSetModel{})
		},
	}
}
