package notesdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string // server-side failure detail, if any
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("notes api %d: %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("notes api %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	var er ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Message == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Detail:     string(body),
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: er.Message, Detail: er.Error}
}
