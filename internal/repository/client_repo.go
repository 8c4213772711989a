package repository

import (
	"context"
	"errors"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientListParams struct {
	Status   *domain.ClientStatus
	Page     int
	PageSize int
}

type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	List(ctx context.Context, params ClientListParams) ([]domain.Client, int64, error)
	Update(ctx context.Context, client *domain.Client) error
	SetStatus(ctx context.Context, id string, status domain.ClientStatus) error
}

type GormClientRepo struct {
	db *gorm.DB
}

func NewGormClientRepo(db *gorm.DB) *GormClientRepo {
	return &GormClientRepo{db: db}
}

func (r *GormClientRepo) Create(ctx context.Context, client *domain.Client) error {
	model := clientModelFromDomain(client)
	if model == nil {
		return domain.ErrValidation
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	*client = *clientModelToDomain(model)
	return nil
}

func (r *GormClientRepo) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	var model ClientModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return clientModelToDomain(&model), nil
}

func (r *GormClientRepo) List(ctx context.Context, params ClientListParams) ([]domain.Client, int64, error) {
	query := r.db.WithContext(ctx).Model(&ClientModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []ClientModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	clients := make([]domain.Client, 0, len(models))
	for i := range models {
		clients = append(clients, *clientModelToDomain(&models[i]))
	}

	return clients, total, nil
}

func (r *GormClientRepo) Update(ctx context.Context, client *domain.Client) error {
	model := clientModelFromDomain(client)
	if model == nil || model.ID == "" {
		return domain.ErrValidation
	}

	result := r.db.WithContext(ctx).
		Model(&ClientModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"name":          model.Name,
			"contact_email": model.ContactEmail,
			"status":        model.Status,
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

func (r *GormClientRepo) SetStatus(ctx context.Context, id string, status domain.ClientStatus) error {
	result := r.db.WithContext(ctx).
		Model(&ClientModel{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
