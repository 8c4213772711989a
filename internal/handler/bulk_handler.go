package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/courseops/admin-engine/internal/bulk"
	"github.com/courseops/admin-engine/internal/domain"
	"github.com/courseops/admin-engine/internal/repository"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type CatalogService interface {
	RunBulk(ctx context.Context, tenantID string, action domain.KindAction, price *float64, items []domain.OperationItem) (*domain.BulkRun, error)
	Progress() bulk.Snapshot
	ResetProgress()
	GetRun(ctx context.Context, id string) (*domain.BulkRun, error)
	ListRuns(ctx context.Context, params repository.RunListParams) ([]domain.BulkRun, int64, error)
}

type BulkHandler struct {
	service CatalogService
}

func NewBulkHandler(service CatalogService) (*BulkHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("catalog service is required")
	}
	return &BulkHandler{service: service}, nil
}

func RegisterBulkRoutes(router fiber.Router, service CatalogService) error {
	h, err := NewBulkHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/courses/bulk", h.RunBulk)
	v1.Get("/runs", h.ListRuns)
	v1.Get("/runs/active", h.ActiveRun)
	v1.Post("/runs/reset", h.ResetRun)
	v1.Get("/runs/:id", h.GetRun)

	return nil
}

type bulkItemRequest struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type runBulkRequest struct {
	TenantID string            `json:"tenantId"`
	Action   string            `json:"action"`
	Price    *float64          `json:"price,omitempty"`
	Items    []bulkItemRequest `json:"items"`
}

type itemResultResponse struct {
	ItemID    int64   `json:"itemId"`
	ItemTitle string  `json:"itemTitle"`
	Success   bool    `json:"success"`
	Error     *string `json:"error,omitempty"`
}

type runResponse struct {
	ID         string               `json:"id"`
	TenantID   string               `json:"tenantId"`
	Action     string               `json:"action"`
	Price      *float64             `json:"price,omitempty"`
	TotalCount int                  `json:"totalCount"`
	Summary    string               `json:"summary"`
	Results    []itemResultResponse `json:"results,omitempty"`
	Aborted    bool                 `json:"aborted"`
	CreatedAt  time.Time            `json:"createdAt"`
	FinishedAt *time.Time           `json:"finishedAt,omitempty"`
	Warning    string               `json:"warning,omitempty"`
}

type listRunsResponse struct {
	Data []runResponse `json:"data"`
	Meta listMeta      `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

type runProgressResponse struct {
	Total       int                  `json:"total"`
	Completed   int                  `json:"completed"`
	IsExecuting bool                 `json:"isExecuting"`
	Results     []itemResultResponse `json:"results"`
}

func (h *BulkHandler) RunBulk(c *fiber.Ctx) error {
	var req runBulkRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	action, err := domain.ParseKindActionFromString(req.Action)
	if err != nil {
		return toHTTPError(err)
	}

	items := make([]domain.OperationItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, domain.OperationItem{
			ID:    item.ID,
			Title: strings.TrimSpace(item.Title),
		})
	}

	run, err := h.service.RunBulk(c.Context(), req.TenantID, action, req.Price, items)
	if err != nil {
		if run == nil {
			return toHTTPError(err)
		}
		// The run started and aborted midway; return the partial record.
		response := toRunResponse(run, true)
		response.Warning = err.Error()
		return c.Status(fiber.StatusOK).JSON(response)
	}

	return c.Status(fiber.StatusOK).JSON(toRunResponse(run, true))
}

func (h *BulkHandler) GetRun(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	run, err := h.service.GetRun(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toRunResponse(run, true))
}

func (h *BulkHandler) ListRuns(c *fiber.Ctx) error {
	params, err := parseRunListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	runs, total, err := h.service.ListRuns(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]runResponse, 0, len(runs))
	for i := range runs {
		data = append(data, toRunResponse(&runs[i], false))
	}

	return c.Status(fiber.StatusOK).JSON(listRunsResponse{
		Data: data,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *BulkHandler) ActiveRun(c *fiber.Ctx) error {
	snapshot := h.service.Progress()

	results := make([]itemResultResponse, 0, len(snapshot.Results))
	for _, result := range snapshot.Results {
		results = append(results, toItemResultResponse(result))
	}

	return c.Status(fiber.StatusOK).JSON(runProgressResponse{
		Total:       snapshot.Total,
		Completed:   snapshot.Completed,
		IsExecuting: snapshot.IsExecuting,
		Results:     results,
	})
}

func (h *BulkHandler) ResetRun(c *fiber.Ctx) error {
	h.service.ResetProgress()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "reset",
	})
}

func parseRunListParams(c *fiber.Ctx) (repository.RunListParams, error) {
	params := repository.RunListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.RunListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.RunListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawTenant := strings.TrimSpace(c.Query("tenantId")); rawTenant != "" {
		params.TenantID = &rawTenant
	}

	if rawAction := strings.TrimSpace(c.Query("action")); rawAction != "" {
		action, err := domain.ParseKindActionFromString(rawAction)
		if err != nil {
			return repository.RunListParams{}, err
		}
		params.Action = &action
	}

	if rawSummary := strings.TrimSpace(c.Query("summary")); rawSummary != "" {
		summary := domain.Summary(strings.ToUpper(rawSummary))
		if !summary.IsValid() {
			return repository.RunListParams{}, fmt.Errorf("%w: invalid summary %q", domain.ErrValidation, rawSummary)
		}
		params.Summary = &summary
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.RunListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.RunListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toRunResponse(run *domain.BulkRun, includeResults bool) runResponse {
	if run == nil {
		return runResponse{}
	}

	response := runResponse{
		ID:         run.ID,
		TenantID:   run.TenantID,
		Action:     run.Action.String(),
		Price:      run.Price,
		TotalCount: run.TotalCount,
		Summary:    run.Summary.String(),
		Aborted:    run.Aborted,
		CreatedAt:  run.CreatedAt,
		FinishedAt: run.FinishedAt,
	}
	if includeResults {
		response.Results = make([]itemResultResponse, 0, len(run.Results))
		for _, result := range run.Results {
			response.Results = append(response.Results, toItemResultResponse(result))
		}
	}
	return response
}

func toItemResultResponse(result domain.ItemResult) itemResultResponse {
	return itemResultResponse{
		ItemID:    result.ItemID,
		ItemTitle: result.ItemTitle,
		Success:   result.Success,
		Error:     result.Error,
	}
}
