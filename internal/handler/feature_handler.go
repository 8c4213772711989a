package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/gofiber/fiber/v2"
)

type FeatureService interface {
	Get(ctx context.Context, clientID string) (*domain.FeatureSet, error)
	Save(ctx context.Context, set *domain.FeatureSet) (*domain.FeatureSet, error)
}

type FeatureHandler struct {
	service FeatureService
}

func NewFeatureHandler(service FeatureService) (*FeatureHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("feature service is required")
	}
	return &FeatureHandler{service: service}, nil
}

func RegisterFeatureRoutes(router fiber.Router, service FeatureService) error {
	h, err := NewFeatureHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/clients/:clientId/features", h.GetFeatures)
	v1.Put("/clients/:clientId/features", h.SaveFeatures)

	return nil
}

type saveFeaturesRequest struct {
	Features []string `json:"features"`
	Version  int64    `json:"version"`
}

type featureSetResponse struct {
	ClientID  string    `json:"clientId"`
	Features  []string  `json:"features"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (h *FeatureHandler) GetFeatures(c *fiber.Ctx) error {
	clientID := strings.TrimSpace(c.Params("clientId"))
	set, err := h.service.Get(c.Context(), clientID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toFeatureSetResponse(set))
}

// SaveFeatures replaces the tenant's feature set. A stale version comes
// back as 409; the console refreshes its snapshot and lets the server
// state win before retrying.
func (h *FeatureHandler) SaveFeatures(c *fiber.Ctx) error {
	var req saveFeaturesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	set := domain.FeatureSet{
		ClientID: strings.TrimSpace(c.Params("clientId")),
		Features: req.Features,
		Version:  req.Version,
	}

	saved, err := h.service.Save(c.Context(), &set)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toFeatureSetResponse(saved))
}

func toFeatureSetResponse(set *domain.FeatureSet) featureSetResponse {
	if set == nil {
		return featureSetResponse{}
	}

	features := set.Features
	if features == nil {
		features = []string{}
	}

	return featureSetResponse{
		ClientID:  set.ClientID,
		Features:  features,
		Version:   set.Version,
		UpdatedAt: set.UpdatedAt,
	}
}
