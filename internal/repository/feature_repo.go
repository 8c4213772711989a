package repository

import (
	"context"
	"errors"

	"github.com/courseops/admin-engine/internal/domain"
	"gorm.io/gorm"
)

type FeatureRepository interface {
	Get(ctx context.Context, clientID string) (*domain.FeatureSet, error)
	Save(ctx context.Context, set *domain.FeatureSet) error
}

type GormFeatureRepo struct {
	db *gorm.DB
}

func NewGormFeatureRepo(db *gorm.DB) *GormFeatureRepo {
	return &GormFeatureRepo{db: db}
}

func (r *GormFeatureRepo) Get(ctx context.Context, clientID string) (*domain.FeatureSet, error) {
	var model FeatureSetModel
	err := r.db.WithContext(ctx).First(&model, "client_id = ?", clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return featureSetModelToDomain(&model)
}

// Save persists the set with a compare-and-swap on Version. A stale version
// means another admin saved first; the caller must refresh and retry.
func (r *GormFeatureRepo) Save(ctx context.Context, set *domain.FeatureSet) error {
	model, err := featureSetModelFromDomain(set)
	if err != nil {
		return err
	}
	if model == nil {
		return domain.ErrValidation
	}

	if model.Version == 0 {
		model.Version = 1
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.ErrConflict
			}
			return err
		}
		set.Version = model.Version
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&FeatureSetModel{}).
		Where("client_id = ? AND version = ?", model.ClientID, model.Version).
		Updates(map[string]any{
			"features":   model.Features,
			"version":    model.Version + 1,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}

	set.Version = model.Version + 1
	return nil
}
