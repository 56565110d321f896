package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/calebmorton/vanguard/internal/models"
)

// APIError is the uniform error shape every non-2xx response is normalized
// to. Status 0 means the request never produced a response (network failure
// or timeout).
type APIError struct {
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Errors  []string `json:"errors,omitempty"` // field-level validation details
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

// Unwrap maps the status code onto the sentinel taxonomy so callers can match
// with errors.Is without inspecting status codes themselves.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return models.ErrBadRequest
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.ErrUnauthorized
	case http.StatusNotFound:
		return models.ErrNotFound
	default:
		return nil
	}
}

// decodeError normalizes an error response body. The server emits either
// `{"error", "detail"}` or `{"detail"}` or `{"message"}`; validation errors
// carry a detail array. Missing or unparsable bodies fall back to a generic
// message derived from the status code.
func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{
		Message: fmt.Sprintf("request failed with status %d", resp.StatusCode),
		Status:  resp.StatusCode,
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Error   string          `json:"error"`
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return apiErr
	}

	if detail, errors := parseDetail(payload.Detail); detail != "" || len(errors) > 0 {
		if detail != "" {
			apiErr.Message = detail
		}
		apiErr.Errors = errors
		if detail == "" && len(errors) > 0 {
			apiErr.Message = errors[0]
		}
		return apiErr
	}

	switch {
	case payload.Message != "":
		apiErr.Message = payload.Message
	case payload.Error != "":
		apiErr.Message = payload.Error
	}
	return apiErr
}

// parseDetail handles the two detail shapes: a plain string, or a validation
// array of `{loc, msg}` entries.
func parseDetail(raw json.RawMessage) (string, []string) {
	if len(raw) == 0 {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var entries []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &entries); err == nil {
		var out []string
		for _, e := range entries {
			field := ""
			if n := len(e.Loc); n > 0 {
				field = fmt.Sprintf("%v: ", e.Loc[n-1])
			}
			out = append(out, field+e.Msg)
		}
		return "", out
	}
	return "", nil
}
