package repository

import (
	"context"
	"errors"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatbotRepository interface {
	Create(ctx context.Context, chatbot *domain.Chatbot) error
	GetByID(ctx context.Context, id string) (*domain.Chatbot, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Chatbot, error)
	Update(ctx context.Context, chatbot *domain.Chatbot) error
	Delete(ctx context.Context, id string) error
}

type GormChatbotRepo struct {
	db *gorm.DB
}

func NewGormChatbotRepo(db *gorm.DB) *GormChatbotRepo {
	return &GormChatbotRepo{db: db}
}

func (r *GormChatbotRepo) Create(ctx context.Context, chatbot *domain.Chatbot) error {
	model := chatbotModelFromDomain(chatbot)
	if model == nil {
		return domain.ErrValidation
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	*chatbot = *chatbotModelToDomain(model)
	return nil
}

func (r *GormChatbotRepo) GetByID(ctx context.Context, id string) (*domain.Chatbot, error) {
	var model ChatbotModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return chatbotModelToDomain(&model), nil
}

func (r *GormChatbotRepo) ListByClient(ctx context.Context, clientID string) ([]domain.Chatbot, error) {
	var models []ChatbotModel
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	chatbots := make([]domain.Chatbot, 0, len(models))
	for i := range models {
		chatbots = append(chatbots, *chatbotModelToDomain(&models[i]))
	}

	return chatbots, nil
}

func (r *GormChatbotRepo) Update(ctx context.Context, chatbot *domain.Chatbot) error {
	model := chatbotModelFromDomain(chatbot)
	if model == nil || model.ID == "" {
		return domain.ErrValidation
	}

	result := r.db.WithContext(ctx).
		Model(&ChatbotModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"name":          model.Name,
			"model":         model.Model,
			"system_prompt": model.SystemPrompt,
			"enabled":       model.Enabled,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormChatbotRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&ChatbotModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
