package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/courseops/admin-engine/internal/repository"
	"github.com/gofiber/fiber/v2"
)

type ClientService interface {
	Create(ctx context.Context, client *domain.Client) (*domain.Client, error)
	GetByID(ctx context.Context, id string) (*domain.Client, error)
	List(ctx context.Context, params repository.ClientListParams) ([]domain.Client, int64, error)
	Update(ctx context.Context, client *domain.Client) (*domain.Client, error)
	Activate(ctx context.Context, id string) error
	Deactivate(ctx context.Context, id string) error
}

type ClientHandler struct {
	service ClientService
}

func NewClientHandler(service ClientService) (*ClientHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("client service is required")
	}
	return &ClientHandler{service: service}, nil
}

func RegisterClientRoutes(router fiber.Router, service ClientService) error {
	h, err := NewClientHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/clients", h.CreateClient)
	v1.Get("/clients", h.ListClients)
	v1.Get("/clients/:id", h.GetClient)
	v1.Put("/clients/:id", h.UpdateClient)
	v1.Post("/clients/:id/activate", h.ActivateClient)
	v1.Post("/clients/:id/deactivate", h.DeactivateClient)

	return nil
}

type clientRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contactEmail"`
	Status       string `json:"status,omitempty"`
}

type clientResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	ContactEmail string    `json:"contactEmail"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type listClientsResponse struct {
	Data []clientResponse `json:"data"`
	Meta listMeta         `json:"meta"`
}

func (h *ClientHandler) CreateClient(c *fiber.Ctx) error {
	var req clientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	client := domain.Client{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Status:       domain.ClientStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
	}

	created, err := h.service.Create(c.Context(), &client)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(toClientResponse(created))
}

func (h *ClientHandler) GetClient(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	client, err := h.service.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toClientResponse(client))
}

func (h *ClientHandler) ListClients(c *fiber.Ctx) error {
	params := repository.ClientListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return toHTTPError(fmt.Errorf("%w: page must be >= 1", domain.ErrValidation))
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return toHTTPError(fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize))
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status := domain.ClientStatus(strings.ToUpper(rawStatus))
		if !status.IsValid() {
			return toHTTPError(fmt.Errorf("%w: invalid client status %q", domain.ErrValidation, rawStatus))
		}
		params.Status = &status
	}

	clients, total, err := h.service.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]clientResponse, 0, len(clients))
	for i := range clients {
		data = append(data, toClientResponse(&clients[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listClientsResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *ClientHandler) UpdateClient(c *fiber.Ctx) error {
	var req clientRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	client := domain.Client{
		ID:           strings.TrimSpace(c.Params("id")),
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		Status:       domain.ClientStatus(strings.ToUpper(strings.TrimSpace(req.Status))),
	}

	updated, err := h.service.Update(c.Context(), &client)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toClientResponse(updated))
}

func (h *ClientHandler) ActivateClient(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Activate(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"clientId": id,
		"status":   domain.ClientActive.String(),
	})
}

func (h *ClientHandler) DeactivateClient(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	if err := h.service.Deactivate(c.Context(), id); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"clientId": id,
		"status":   domain.ClientInactive.String(),
	})
}

func toClientResponse(client *domain.Client) clientResponse {
	if client == nil {
		return clientResponse{}
	}

	return clientResponse{
		ID:           client.ID,
		Name:         client.Name,
		ContactEmail: client.ContactEmail,
		Status:       client.Status.String(),
		CreatedAt:    client.CreatedAt,
		UpdatedAt:    client.UpdatedAt,
	}
}
