package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrTimeout marks requests abandoned because their deadline passed.
var ErrTimeout = errors.New("backend: request timed out")

// ServiceError is a non-2xx response without a structured body. Body holds
// the raw text the service sent.
type ServiceError struct {
	StatusCode int
	Body       string
}

func (e *ServiceError) Error() string {
	if msg := strings.TrimRight(e.Body, "\r\n"); msg != "" {
		return msg
	}
	return fmt.Sprintf("backend: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
