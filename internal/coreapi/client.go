package coreapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultRequestTimeout = 10 * time.Second

// Client talks to the core LMS REST API: single-item course updates and
// async operation submission/status.
type Client struct {
	http    *resty.Client
	baseURL string
}

func NewClient(baseURL string, token string) (*Client, error) {
	client := resty.New()
	client.SetTimeout(defaultRequestTimeout)
	client.SetRetryCount(0)
	if strings.TrimSpace(token) != "" {
		client.SetAuthToken(token)
	}

	return NewClientWithHTTP(baseURL, client)
}

func NewClientWithHTTP(baseURL string, http *resty.Client) (*Client, error) {
	trimmedURL := strings.TrimSpace(strings.TrimSuffix(baseURL, "/"))
	if trimmedURL == "" {
		return nil, fmt.Errorf("core api base url is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid core api base url: %w", err)
	}
	if http == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if http.GetClient().Timeout == 0 {
		http.SetTimeout(defaultRequestTimeout)
	}
	http.SetRetryCount(0)

	return &Client{
		http:    http,
		baseURL: trimmedURL,
	}, nil
}

type courseUpdateRequest struct {
	Published *bool    `json:"published,omitempty"`
	IsFree    *bool    `json:"is_free,omitempty"`
	Price     *float64 `json:"price,omitempty"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// UpdateCourse performs exactly one remote course update. Failures the
// server describes come back as *MutationError; context cancellation is
// passed through untouched.
func (c *Client) UpdateCourse(ctx context.Context, tenantID string, courseID int64, fields domain.CourseFields) error {
	if c == nil || c.http == nil {
		return fmt.Errorf("core api client is not initialized")
	}
	if strings.TrimSpace(tenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	if courseID <= 0 {
		return fmt.Errorf("%w: course id must be positive", domain.ErrValidation)
	}

	reqBody := courseUpdateRequest{
		Published: fields.Published,
		IsFree:    fields.IsFree,
		Price:     fields.Price,
	}

	endpoint := fmt.Sprintf("%s/v1/tenants/%s/courses/%d", c.baseURL, url.PathEscape(tenantID), courseID)
	response, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Patch(endpoint)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return &MutationError{
			Message:   "core api request failed: " + err.Error(),
			Transient: true,
			Cause:     err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &MutationError{
		StatusCode: statusCode,
		Message:    responseErrorMessage(statusCode, response.Body()),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

type startOperationRequest struct {
	OperationType string          `json:"operation_type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

// StartedOperation is the core service's acknowledgement of an async
// operation submission.
type StartedOperation struct {
	OperationID string `json:"operation_id"`
	Status      string `json:"status"`
	Message     string `json:"message"`
}

// StartOperation submits a long-running operation and returns its opaque id.
func (c *Client) StartOperation(ctx context.Context, operationType domain.OperationType, payload json.RawMessage) (*StartedOperation, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("core api client is not initialized")
	}
	if !operationType.IsValid() {
		return nil, fmt.Errorf("%w: invalid operation type %q", domain.ErrValidation, operationType)
	}

	endpoint := c.baseURL + "/v1/operations"
	var started StartedOperation
	response, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(startOperationRequest{
			OperationType: operationType.String(),
			Payload:       payload,
		}).
		SetResult(&started).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to start operation: %w", err)
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("failed to start operation: %s", responseErrorMessage(statusCode, response.Body()))
	}
	if strings.TrimSpace(started.OperationID) == "" {
		return nil, fmt.Errorf("core api returned no operation id")
	}

	return &started, nil
}

type operationStatusResponse struct {
	OperationID   string          `json:"operation_id"`
	OperationType string          `json:"operation_type"`
	Status        string          `json:"status"`
	Progress      int             `json:"progress"`
	Message       string          `json:"message"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	ResultData    json.RawMessage `json:"result_data,omitempty"`
	ErrorDetails  *struct {
		ErrorType    string `json:"error_type"`
		ErrorMessage string `json:"error_message"`
	} `json:"error_details,omitempty"`
}

// GetOperation fetches the current snapshot of an async operation. A 404
// from the status endpoint maps to domain.ErrNotFound.
func (c *Client) GetOperation(ctx context.Context, operationID string) (*domain.AsyncOperation, error) {
	if c == nil || c.http == nil {
		return nil, fmt.Errorf("core api client is not initialized")
	}
	trimmedID := strings.TrimSpace(operationID)
	if trimmedID == "" {
		return nil, fmt.Errorf("%w: operation id is required", domain.ErrValidation)
	}

	endpoint := c.baseURL + "/v1/operations/" + url.PathEscape(trimmedID)
	var status operationStatusResponse
	response, err := c.http.R().
		SetContext(ctx).
		SetResult(&status).
		Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch operation status: %w", err)
	}

	statusCode := response.StatusCode()
	if statusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: operation %q", domain.ErrNotFound, trimmedID)
	}
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("failed to fetch operation status: %s", responseErrorMessage(statusCode, response.Body()))
	}

	return statusResponseToDomain(&status)
}

func statusResponseToDomain(resp *operationStatusResponse) (*domain.AsyncOperation, error) {
	operationType, err := domain.ParseOperationTypeFromString(resp.OperationType)
	if err != nil {
		return nil, fmt.Errorf("core api returned %v", err)
	}
	operationStatus, err := domain.ParseOperationStatusFromString(resp.Status)
	if err != nil {
		return nil, fmt.Errorf("core api returned %v", err)
	}

	operation := &domain.AsyncOperation{
		OperationID: resp.OperationID,
		Type:        operationType,
		Status:      operationStatus,
		Progress:    resp.Progress,
		Message:     resp.Message,
		CreatedAt:   resp.CreatedAt,
		CompletedAt: resp.CompletedAt,
		ResultData:  resp.ResultData,
	}
	if resp.ErrorDetails != nil {
		operation.ErrorDetails = &domain.OperationError{
			ErrorType:    resp.ErrorDetails.ErrorType,
			ErrorMessage: resp.ErrorDetails.ErrorMessage,
		}
	}

	if err := operation.Validate(); err != nil {
		return nil, fmt.Errorf("core api returned invalid operation snapshot: %w", err)
	}

	return operation, nil
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func responseErrorMessage(statusCode int, body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		if msg := strings.TrimSpace(parsed.Message); msg != "" {
			return msg
		}
		if msg := strings.TrimSpace(parsed.Error); msg != "" {
			return msg
		}
	}

	base := fmt.Sprintf("core api returned status %d", statusCode)
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return fmt.Sprintf("%s: %s", base, trimmed)
	}
	return base
}
