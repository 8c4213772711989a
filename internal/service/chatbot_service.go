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

// ChatbotService manages per-tenant chatbot configurations.
type ChatbotService struct {
	chatbots repository.ChatbotRepository
	clients  repository.ClientRepository
	logger   *zap.Logger
}

func NewChatbotService(
	chatbots repository.ChatbotRepository,
	clients repository.ClientRepository,
	logger *zap.Logger,
) (*ChatbotService, error) {
	if chatbots == nil {
		return nil, fmt.Errorf("chatbot repository is required")
	}
	if clients == nil {
		return nil, fmt.Errorf("client repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ChatbotService{
		chatbots: chatbots,
		clients:  clients,
		logger:   logger,
	}, nil
}

func (s *ChatbotService) Create(ctx context.Context, chatbot *domain.Chatbot) (*domain.Chatbot, error) {
	if chatbot == nil {
		return nil, fmt.Errorf("%w: chatbot is required", domain.ErrValidation)
	}

	chatbot.ClientID = strings.TrimSpace(chatbot.ClientID)
	chatbot.Name = strings.TrimSpace(chatbot.Name)
	chatbot.Model = strings.TrimSpace(chatbot.Model)
	now := time.Now().UTC()
	chatbot.CreatedAt = now
	chatbot.UpdatedAt = now

	if err := chatbot.Validate(); err != nil {
		return nil, err
	}

	// The owning tenant must exist before a bot can be attached to it.
	if _, err := s.clients.GetByID(ctx, chatbot.ClientID); err != nil {
		return nil, err
	}

	if err := s.chatbots.Create(ctx, chatbot); err != nil {
		return nil, err
	}

	s.logger.Info("chatbot created",
		zap.String("chatbotId", chatbot.ID),
		zap.String("clientId", chatbot.ClientID),
	)
	return chatbot, nil
}

func (s *ChatbotService) GetByID(ctx context.Context, id string) (*domain.Chatbot, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: chatbot id is required", domain.ErrValidation)
	}
	return s.chatbots.GetByID(ctx, strings.TrimSpace(id))
}

func (s *ChatbotService) ListByClient(ctx context.Context, clientID string) ([]domain.Chatbot, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("%w: client id is required", domain.ErrValidation)
	}
	return s.chatbots.ListByClient(ctx, strings.TrimSpace(clientID))
}

func (s *ChatbotService) Update(ctx context.Context, chatbot *domain.Chatbot) (*domain.Chatbot, error) {
	if chatbot == nil || strings.TrimSpace(chatbot.ID) == "" {
		return nil, fmt.Errorf("%w: chatbot id is required", domain.ErrValidation)
	}

	existing, err := s.chatbots.GetByID(ctx, strings.TrimSpace(chatbot.ID))
	if err != nil {
		return nil, err
	}

	chatbot.ClientID = existing.ClientID
	chatbot.Name = strings.TrimSpace(chatbot.Name)
	chatbot.Model = strings.TrimSpace(chatbot.Model)
	chatbot.UpdatedAt = time.Now().UTC()

	if err := chatbot.Validate(); err != nil {
		return nil, err
	}
	if err := s.chatbots.Update(ctx, chatbot); err != nil {
		return nil, err
	}
	return chatbot, nil
}

func (s *ChatbotService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: chatbot id is required", domain.ErrValidation)
	}

	if err := s.chatbots.Delete(ctx, strings.TrimSpace(id)); err != nil {
		return err
	}
	s.logger.Info("chatbot deleted", zap.String("chatbotId", strings.TrimSpace(id)))
	return nil
}
