package retry

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// StatusCoder is implemented by gateway errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// DefaultIsRetriable accepts network resets and timeouts, HTTP 408, 429 and
// 5xx answers, and errors whose message mentions a timeout or rate limit.
func DefaultIsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var sc StatusCoder
	if errors.As(err, &sc) {
		return IsRetriableStatus(sc.HTTPStatus())
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "rate limit")
}

func IsRetriableStatus(status int) bool {
	return status == 408 || status == 429 || status >= 500
}
