package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/courseops/admin-engine/internal/repository"
	"go.uber.org/zap"
)

// ClientService manages tenant organizations.
type ClientService struct {
	clients repository.ClientRepository
	logger  *zap.Logger
}

func NewClientService(clients repository.ClientRepository, logger *zap.Logger) (*ClientService, error) {
	if clients == nil {
		return nil, fmt.Errorf("client repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ClientService{
		clients: clients,
		logger:  logger,
	}, nil
}

func (s *ClientService) Create(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", domain.ErrValidation)
	}

	client.Name = strings.TrimSpace(client.Name)
	client.ContactEmail = strings.TrimSpace(client.ContactEmail)
	if client.Status == "" {
		client.Status = domain.ClientActive
	}
	now := time.Now().UTC()
	client.CreatedAt = now
	client.UpdatedAt = now

	if err := client.Validate(); err != nil {
		return nil, err
	}
	if err := s.clients.Create(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("client created",
		zap.String("clientId", client.ID),
		zap.String("name", client.Name),
	)
	return client, nil
}

func (s *ClientService) GetByID(ctx context.Context, id string) (*domain.Client, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: client id is required", domain.ErrValidation)
	}
	return s.clients.GetByID(ctx, strings.TrimSpace(id))
}

func (s *ClientService) List(ctx context.Context, params repository.ClientListParams) ([]domain.Client, int64, error) {
	return s.clients.List(ctx, params)
}

func (s *ClientService) Update(ctx context.Context, client *domain.Client) (*domain.Client, error) {
	if client == nil || strings.TrimSpace(client.ID) == "" {
		return nil, fmt.Errorf("%w: client id is required", domain.ErrValidation)
	}

	client.Name = strings.TrimSpace(client.Name)
	client.ContactEmail = strings.TrimSpace(client.ContactEmail)
	client.UpdatedAt = time.Now().UTC()

	if err := client.Validate(); err != nil {
		return nil, err
	}
	if err := s.clients.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// Activate re-enables a previously retired tenant.
func (s *ClientService) Activate(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.ClientActive)
}

// Deactivate retires a tenant without deleting its history.
func (s *ClientService) Deactivate(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, domain.ClientInactive)
}

func (s *ClientService) setStatus(ctx context.Context, id string, status domain.ClientStatus) error {
	trimmedID := strings.TrimSpace(id)
	if trimmedID == "" {
		return fmt.Errorf("%w: client id is required", domain.ErrValidation)
	}

	if err := s.clients.SetStatus(ctx, trimmedID, status); err != nil {
		return err
	}
	s.logger.Info("client status changed",
		zap.String("clientId", trimmedID),
		zap.String("status", status.String()),
	)
	return nil
}
