package repository

import (
	"context"
	"errors"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
	"gorm.io/gorm"
)

// OperationRef is the local view of a remotely owned async operation.
type OperationRef struct {
	OperationID string
	Type        domain.OperationType
	Status      domain.OperationStatus
	StartedAt   time.Time
	CompletedAt *time.Time
}

type OperationRefRepository interface {
	Create(ctx context.Context, ref *OperationRef) error
	GetByID(ctx context.Context, operationID string) (*OperationRef, error)
	UpdateStatus(ctx context.Context, operationID string, status domain.OperationStatus, completedAt *time.Time) error
}

type GormOperationRefRepo struct {
	db *gorm.DB
}

func NewGormOperationRefRepo(db *gorm.DB) *GormOperationRefRepo {
	return &GormOperationRefRepo{db: db}
}

func (r *GormOperationRefRepo) Create(ctx context.Context, ref *OperationRef) error {
	if ref == nil {
		return domain.ErrValidation
	}

	model := OperationRefModel{
		OperationID: ref.OperationID,
		Type:        ref.Type,
		Status:      ref.Status,
		StartedAt:   ref.StartedAt,
		CompletedAt: ref.CompletedAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *GormOperationRefRepo) GetByID(ctx context.Context, operationID string) (*OperationRef, error) {
	var model OperationRefModel
	err := r.db.WithContext(ctx).First(&model, "operation_id = ?", operationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &OperationRef{
		OperationID: model.OperationID,
		Type:        model.Type,
		Status:      model.Status,
		StartedAt:   model.StartedAt,
		CompletedAt: model.CompletedAt,
	}, nil
}

func (r *GormOperationRefRepo) UpdateStatus(ctx context.Context, operationID string, status domain.OperationStatus, completedAt *time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&OperationRefModel{}).
		Where("operation_id = ?", operationID).
		Updates(map[string]any{
			"status":       status,
			"completed_at": completedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
