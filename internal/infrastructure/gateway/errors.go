package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnsupportedGateway = errors.New("unsupported gateway")
	ErrMissingCredentials = errors.New("gateway credentials are incomplete")
)

// APIError is a non-2xx answer from a gateway API.
type APIError struct {
	Gateway    string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s api error %d (%s): %s", e.Gateway, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s api error %d: %s", e.Gateway, e.StatusCode, e.Message)
}

// HTTPStatus lets retry classification read the status code.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsUnauthorized reports whether the gateway rejected the credentials.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsUnauthorized()
}

// IsNotFound reports whether err is a gateway 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
