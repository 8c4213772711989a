package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/courseops/admin-engine/internal/repository"
	"go.uber.org/zap"
)

// FeatureService manages server-confirmed feature sets. Saves are
// version-checked; a stale version surfaces as ErrConflict and the caller
// refreshes before retrying.
type FeatureService struct {
	features repository.FeatureRepository
	clients  repository.ClientRepository
	logger   *zap.Logger
}

func NewFeatureService(
	features repository.FeatureRepository,
	clients repository.ClientRepository,
	logger *zap.Logger,
) (*FeatureService, error) {
	if features == nil {
		return nil, fmt.Errorf("feature repository is required")
	}
	if clients == nil {
		return nil, fmt.Errorf("client repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FeatureService{
		features: features,
		clients:  clients,
		logger:   logger,
	}, nil
}

// Get returns the tenant's confirmed feature set. A tenant with no saved
// set yet gets an empty set at version zero.
func (s *FeatureService) Get(ctx context.Context, clientID string) (*domain.FeatureSet, error) {
	trimmedID := strings.TrimSpace(clientID)
	if trimmedID == "" {
		return nil, fmt.Errorf("%w: client id is required", domain.ErrValidation)
	}

	if _, err := s.clients.GetByID(ctx, trimmedID); err != nil {
		return nil, err
	}

	set, err := s.features.Get(ctx, trimmedID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.FeatureSet{
			ClientID: trimmedID,
			Features: []string{},
			Version:  0,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

// Save persists a new feature set for the tenant. The submitted version
// must match the stored one.
func (s *FeatureService) Save(ctx context.Context, set *domain.FeatureSet) (*domain.FeatureSet, error) {
	if set == nil {
		return nil, fmt.Errorf("%w: feature set is required", domain.ErrValidation)
	}

	set.ClientID = strings.TrimSpace(set.ClientID)
	set.Features = domain.NormalizeFeatures(set.Features)
	set.UpdatedAt = time.Now().UTC()

	if err := set.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.clients.GetByID(ctx, set.ClientID); err != nil {
		return nil, err
	}

	if err := s.features.Save(ctx, set); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Warn("feature set save rejected on stale version",
				zap.String("clientId", set.ClientID),
				zap.Int64("submittedVersion", set.Version),
			)
		}
		return nil, err
	}

	s.logger.Info("feature set saved",
		zap.String("clientId", set.ClientID),
		zap.Int64("version", set.Version),
		zap.Int("features", len(set.Features)),
	)
	return set, nil
}
