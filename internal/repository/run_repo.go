package repository

import (
	"context"
	"errors"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RunListParams struct {
	TenantID *string
	Action   *domain.KindAction
	Summary  *domain.Summary
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

type BulkRunRepository interface {
	Create(ctx context.Context, run *domain.BulkRun) error
	GetByID(ctx context.Context, id string) (*domain.BulkRun, error)
	List(ctx context.Context, params RunListParams) ([]domain.BulkRun, int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type GormBulkRunRepo struct {
	db *gorm.DB
}

func NewGormBulkRunRepo(db *gorm.DB) *GormBulkRunRepo {
	return &GormBulkRunRepo{db: db}
}

func (r *GormBulkRunRepo) Create(ctx context.Context, run *domain.BulkRun) error {
	model := runModelFromDomain(run)
	if model == nil {
		return domain.ErrValidation
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}

	items := make([]BulkRunItemModel, 0, len(run.Results))
	for i, result := range run.Results {
		items = append(items, BulkRunItemModel{
			ID:        uuid.NewString(),
			RunID:     model.ID,
			Position:  i,
			ItemID:    result.ItemID,
			ItemTitle: result.ItemTitle,
			Success:   result.Success,
			Error:     result.Error,
			CreatedAt: model.CreatedAt,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.CreateInBatches(&items, 100).Error
	})
	if err != nil {
		return err
	}

	run.ID = model.ID
	return nil
}

func (r *GormBulkRunRepo) GetByID(ctx context.Context, id string) (*domain.BulkRun, error) {
	var model BulkRunModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var items []BulkRunItemModel
	err = r.db.WithContext(ctx).
		Where("run_id = ?", id).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return runModelToDomain(&model, items), nil
}

// List returns run headers only; per-item results are loaded by GetByID.
func (r *GormBulkRunRepo) List(ctx context.Context, params RunListParams) ([]domain.BulkRun, int64, error) {
	query := r.db.WithContext(ctx).Model(&BulkRunModel{})

	if params.TenantID != nil {
		query = query.Where("tenant_id = ?", *params.TenantID)
	}
	if params.Action != nil {
		query = query.Where("action = ?", *params.Action)
	}
	if params.Summary != nil {
		query = query.Where("summary = ?", *params.Summary)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
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

	var models []BulkRunModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	runs := make([]domain.BulkRun, 0, len(models))
	for i := range models {
		runs = append(runs, *runModelToDomain(&models[i], nil))
	}

	return runs, total, nil
}

func (r *GormBulkRunRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("run_id IN (?)", tx.Session(&gorm.Session{NewDB: true}).
				Model(&BulkRunModel{}).
				Select("id").
				Where("created_at < ?", cutoff)).
			Delete(&BulkRunItemModel{}).Error; err != nil {
			return err
		}

		result := tx.Where("created_at < ?", cutoff).Delete(&BulkRunModel{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
