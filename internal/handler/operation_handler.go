package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/courseops/admin-engine/internal/coreapi"
	"github.com/courseops/admin-engine/internal/domain"
	"github.com/gofiber/fiber/v2"
)

type OperationService interface {
	Start(ctx context.Context, operationType domain.OperationType, payload json.RawMessage) (*coreapi.StartedOperation, error)
	Status(ctx context.Context, operationID string) (*domain.AsyncOperation, error)
}

type OperationHandler struct {
	service OperationService
}

func NewOperationHandler(service OperationService) (*OperationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("operation service is required")
	}
	return &OperationHandler{service: service}, nil
}

func RegisterOperationRoutes(router fiber.Router, service OperationService) error {
	h, err := NewOperationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/operations", h.StartOperation)
	v1.Get("/operations/:id", h.GetOperation)

	return nil
}

type startOperationRequest struct {
	OperationType string          `json:"operationType"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

type startOperationResponse struct {
	OperationID string `json:"operationId"`
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
}

type operationErrorResponse struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
}

type operationResponse struct {
	OperationID  string                  `json:"operationId"`
	Type         string                  `json:"operationType"`
	Status       string                  `json:"status"`
	Progress     int                     `json:"progress"`
	Message      string                  `json:"message,omitempty"`
	CreatedAt    time.Time               `json:"createdAt"`
	CompletedAt  *time.Time              `json:"completedAt,omitempty"`
	ResultData   json.RawMessage         `json:"resultData,omitempty"`
	ErrorDetails *operationErrorResponse `json:"errorDetails,omitempty"`
}

func (h *OperationHandler) StartOperation(c *fiber.Ctx) error {
	var req startOperationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	operationType, err := domain.ParseOperationTypeFromString(req.OperationType)
	if err != nil {
		return toHTTPError(err)
	}

	started, err := h.service.Start(c.Context(), operationType, req.Payload)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(startOperationResponse{
		OperationID: started.OperationID,
		Status:      started.Status,
		Message:     started.Message,
	})
}

func (h *OperationHandler) GetOperation(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	operation, err := h.service.Status(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	response := operationResponse{
		OperationID: operation.OperationID,
		Type:        operation.Type.String(),
		Status:      operation.Status.String(),
		Progress:    operation.Progress,
		Message:     operation.Message,
		CreatedAt:   operation.CreatedAt,
		CompletedAt: operation.CompletedAt,
		ResultData:  operation.ResultData,
	}
	if operation.ErrorDetails != nil {
		response.ErrorDetails = &operationErrorResponse{
			ErrorType:    operation.ErrorDetails.ErrorType,
			ErrorMessage: operation.ErrorDetails.ErrorMessage,
		}
	}

	return c.Status(fiber.StatusOK).JSON(response)
}
