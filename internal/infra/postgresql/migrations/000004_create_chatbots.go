package migrations

import (
	"github.com/courseops/admin-engine/internal/repository"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createChatbotsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_chatbots",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ChatbotModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_chatbots_client_id ON chatbots (client_id)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ChatbotModel{})
		},
	}
}
