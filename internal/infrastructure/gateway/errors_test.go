package gateway

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorClassification(t *testing.T) {
	notFound := fmt.Errorf("cancel: %w", &APIError{Gateway: "stripe", StatusCode: http.StatusNotFound})
	forbidden := &APIError{Gateway: "mercadopago", StatusCode: http.StatusForbidden, Code: "forbidden", Message: "bad token"}

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsUnauthorized(notFound))
	assert.True(t, IsUnauthorized(forbidden))
	assert.False(t, IsNotFound(forbidden))
	assert.Equal(t, "mercadopago api error 403 (forbidden): bad token", forbidden.Error())
	assert.Equal(t, http.StatusForbidden, forbidden.HTTPStatus())
}
