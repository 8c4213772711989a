package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/gofiber/fiber/v2"
)

type ChatbotService interface {
	Create(ctx context.Context, chatbot *domain.Chatbot) (*domain.Chatbot, error)
	GetByID(ctx context.Context, id string) (*domain.Chatbot, error)
	ListByClient(ctx context.Context, clientID string) ([]domain.Chatbot, error)
	Update(ctx context.Context, chatbot *domain.Chatbot) (*domain.Chatbot, error)
	Delete(ctx context.Context, id string) error
}

type ChatbotHandler struct {
	service ChatbotService
}

func NewChatbotHandler(service ChatbotService) (*ChatbotHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("chatbot service is required")
	}
	return &ChatbotHandler{service: service}, nil
}

func RegisterChatbotRoutes(router fiber.Router, service ChatbotService) error {
	h, err := NewChatbotHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/clients/:clientId/chatbots", h.CreateChatbot)
	v1.Get("/clients/:clientId/chatbots", h.ListChatbots)
	v1.Get("/chatbots/:id", h.GetChatbot)
	v1.Put("/chatbots/:id", h.UpdateChatbot)
	v1.Delete("/chatbots/:id", h.DeleteChatbot)

	return nil
}

type chatbotRequest struct {
	Name         string `json:"name"`
	Model        string `json:"model"`
	SystemPrompt string `json:"systemPrompt"`
	Enabled      bool   `json:"enabled"`
}

type chatbotResponse struct {
	ID           string    `json:"id"`
	ClientID     string    `json:"clientId"`
	Name         string    `json:"name"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"systemPrompt"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (h *ChatbotHandler) CreateChatbot(c *fiber.Ctx) error {
	var req chatbotRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	chatbot := domain.Chatbot{
		ClientID:     strings.TrimSpace(c.Params("clientId")),
		Name:         req.Name,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		Enabled:      req.Enabled,
	}

	created, err := h.service.Create(c.Context(), &chatbot)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toChatbotResponse(created))
}

func (h *ChatbotHandler) GetChatbot(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	chatbot, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toChatbotResponse(chatbot))
}

func (h *ChatbotHandler) ListChatbots(c *fiber.Ctx) error {
	clientID := strings.TrimSpace(c.Params("clientId"))
	chatbots, err := h.service.ListByClient(c.Context(), clientID)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]chatbotResponse, 0, len(chatbots))
	for i := range chatbots {
		data = append(data, toChatbotResponse(&chatbots[i]))
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"data": data,
	})
}

func (h *ChatbotHandler) UpdateChatbot(c *fiber.Ctx) error {
	var req chatbotRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	chatbot := domain.Chatbot{
		ID:           strings.TrimSpace(c.Params("id")),
		Name:         req.Name,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		Enabled:      req.Enabled,
	}

	updated, err := h.service.Update(c.Context(), &chatbot)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toChatbotResponse(updated))
}

func (h *ChatbotHandler) DeleteChatbot(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Delete(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func toChatbotResponse(chatbot *domain.Chatbot) chatbotResponse {
	if chatbot == nil {
		return chatbotResponse{}
	}

	return chatbotResponse{
		ID:           chatbot.ID,
		ClientID:     chatbot.ClientID,
		Name:         chatbot.Name,
		Model:        chatbot.Model,
		SystemPrompt: chatbot.SystemPrompt,
		Enabled:      chatbot.Enabled,
		CreatedAt:    chatbot.CreatedAt,
		UpdatedAt:    chatbot.UpdatedAt,
	}
}
