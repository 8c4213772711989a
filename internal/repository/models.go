package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
)

// BulkRunModel is the persistence model for the bulk_runs table.
type BulkRunModel struct {
	ID         string            `gorm:"type:uuid;primaryKey"`
	TenantID   string            `gorm:"type:varchar(64);not null"`
	Action     domain.KindAction `gorm:"type:varchar(20);not null"`
	Price      *float64          `gorm:"type:numeric(10,2)"`
	TotalCount int               `gorm:"not null"`
	Summary    domain.Summary    `gorm:"type:varchar(20);not null"`
	Aborted    bool              `gorm:"not null;default:false"`
	CreatedAt  time.Time
	FinishedAt *time.Time
}

func (BulkRunModel) TableName() string {
	return "bulk_runs"
}

// BulkRunItemModel is the persistence model for bulk_run_items. Position
// preserves submission order across reads.
type BulkRunItemModel struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	RunID     string  `gorm:"type:uuid;not null"`
	Position  int     `gorm:"not null"`
	ItemID    int64   `gorm:"not null"`
	ItemTitle string  `gorm:"type:varchar(512);not null"`
	Success   bool    `gorm:"not null"`
	Error     *string `gorm:"type:text"`
	CreatedAt time.Time
}

func (BulkRunItemModel) TableName() string {
	return "bulk_run_items"
}

// ClientModel is the persistence model for clients.
type ClientModel struct {
	ID           string              `gorm:"type:uuid;primaryKey"`
	Name         string              `gorm:"type:varchar(255);not null"`
	ContactEmail string              `gorm:"type:varchar(255);not null"`
	Status       domain.ClientStatus `gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ClientModel) TableName() string {
	return "clients"
}

// ChatbotModel is the persistence model for chatbots.
type ChatbotModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	ClientID     string `gorm:"type:uuid;not null"`
	Name         string `gorm:"type:varchar(255);not null"`
	Model        string `gorm:"type:varchar(128);not null"`
	SystemPrompt string `gorm:"type:text;not null"`
	Enabled      bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ChatbotModel) TableName() string {
	return "chatbots"
}

// FeatureSetModel is the persistence model for feature_sets. One row per
// tenant; features are stored as a JSON array.
type FeatureSetModel struct {
	ClientID  string `gorm:"type:uuid;primaryKey"`
	Features  string `gorm:"type:jsonb;not null;default:'[]'"`
	Version   int64  `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (FeatureSetModel) TableName() string {
	return "feature_sets"
}

// OperationRefModel is the local reference row for an async operation
// owned by the core service. Only identity and last observed status are
// kept; the authoritative record stays remote.
type OperationRefModel struct {
	OperationID string                 `gorm:"type:varchar(64);primaryKey"`
	Type        domain.OperationType   `gorm:"type:varchar(20);not null"`
	Status      domain.OperationStatus `gorm:"type:varchar(20);not null"`
	StartedAt   time.Time
	CompletedAt *time.Time
}

func (OperationRefModel) TableName() string {
	return "operation_refs"
}

func runModelFromDomain(r *domain.BulkRun) *BulkRunModel {
	if r == nil {
		return nil
	}

	return &BulkRunModel{
		ID:         r.ID,
		TenantID:   r.TenantID,
		Action:     r.Action,
		Price:      r.Price,
		TotalCount: r.TotalCount,
		Summary:    r.Summary,
		Aborted:    r.Aborted,
		CreatedAt:  r.CreatedAt,
		FinishedAt: r.FinishedAt,
	}
}

func runModelToDomain(m *BulkRunModel, items []BulkRunItemModel) *domain.BulkRun {
	if m == nil {
		return nil
	}

	results := make([]domain.ItemResult, 0, len(items))
	for i := range items {
		results = append(results, domain.ItemResult{
			ItemID:    items[i].ItemID,
			ItemTitle: items[i].ItemTitle,
			Success:   items[i].Success,
			Error:     items[i].Error,
		})
	}

	return &domain.BulkRun{
		ID:         m.ID,
		TenantID:   m.TenantID,
		Action:     m.Action,
		Price:      m.Price,
		TotalCount: m.TotalCount,
		Summary:    m.Summary,
		Results:    results,
		Aborted:    m.Aborted,
		CreatedAt:  m.CreatedAt,
		FinishedAt: m.FinishedAt,
	}
}

func clientModelFromDomain(c *domain.Client) *ClientModel {
	if c == nil {
		return nil
	}

	return &ClientModel{
		ID:           c.ID,
		Name:         c.Name,
		ContactEmail: c.ContactEmail,
		Status:       c.Status,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func clientModelToDomain(m *ClientModel) *domain.Client {
	if m == nil {
		return nil
	}

	return &domain.Client{
		ID:           m.ID,
		Name:         m.Name,
		ContactEmail: m.ContactEmail,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func chatbotModelFromDomain(b *domain.Chatbot) *ChatbotModel {
	if b == nil {
		return nil
	}

	return &ChatbotModel{
		ID:           b.ID,
		ClientID:     b.ClientID,
		Name:         b.Name,
		Model:        b.Model,
		SystemPrompt: b.SystemPrompt,
		Enabled:      b.Enabled,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}

func chatbotModelToDomain(m *ChatbotModel) *domain.Chatbot {
	if m == nil {
		return nil
	}

	return &domain.Chatbot{
		ID:           m.ID,
		ClientID:     m.ClientID,
		Name:         m.Name,
		Model:        m.Model,
		SystemPrompt: m.SystemPrompt,
		Enabled:      m.Enabled,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func featureSetModelFromDomain(f *domain.FeatureSet) (*FeatureSetModel, error) {
	if f == nil {
		return nil, nil
	}

	features := f.Features
	if features == nil {
		features = []string{}
	}
	encoded, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}

	return &FeatureSetModel{
		ClientID:  f.ClientID,
		Features:  string(encoded),
		Version:   f.Version,
		UpdatedAt: f.UpdatedAt,
	}, nil
}

func featureSetModelToDomain(m *FeatureSetModel) (*domain.FeatureSet, error) {
	if m == nil {
		return nil, nil
	}

	var features []string
	if m.Features != "" {
		if err := json.Unmarshal([]byte(m.Features), &features); err != nil {
			return nil, fmt.Errorf("failed to decode features: %w", err)
		}
	}

	return &domain.FeatureSet{
		ClientID:  m.ClientID,
		Features:  features,
		Version:   m.Version,
		UpdatedAt: m.UpdatedAt,
	}, nil
}
