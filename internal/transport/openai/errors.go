package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/rescuedex/internal/domain"
)

// parseAPIError extracts a readable message and wraps kind (the provider sentinel).
// Rate limits, 5xx responses and network failures are additionally marked
// domain.ErrTransient so callers can retry.
func parseAPIError(op string, err error, kind error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := extractDetail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		return withStatus(fmt.Errorf("%s API error %d: %s: %w", op, reqErr.HTTPStatusCode, msg, kind),
			reqErr.HTTPStatusCode)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return withStatus(fmt.Errorf("%s API error %d: %s: %w", op, apiErr.HTTPStatusCode, apiErr.Message, kind),
			apiErr.HTTPStatusCode)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s request: %w: %w", op, kind, err)
	}
	return fmt.Errorf("%s request failed: %w: %w: %w", op, kind, domain.ErrTransient, err)
}

func withStatus(err error, status int) error {
	if isTransientStatus(status) {
		return fmt.Errorf("%w: %w", err, domain.ErrTransient)
	}
	return err
}

func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
