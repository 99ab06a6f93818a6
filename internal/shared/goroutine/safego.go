// Package goroutine provides utilities for launching goroutines with panic recovery.
package goroutine

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/orris-inc/paybridge/internal/shared/logger"
)

// SafeGo launches a goroutine with panic recovery. A panic is logged with its
// stack trace instead of crashing the process.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer recoverAndLog(log, name)
		fn()
	}()
}

// Detach runs fn in its own goroutine with a fresh context bounded by timeout.
// The context is not derived from any request so the caller returning does not
// cancel the work. done, if non-nil, is called after fn returns or panics.
func Detach(log logger.Interface, name string, timeout time.Duration, fn func(ctx context.Context), done func()) {
	go func() {
		if done != nil {
			defer done()
		}
		defer recoverAndLog(log, name)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		fn(ctx)
	}()
}

func recoverAndLog(log logger.Interface, name string) {
	if r := recover(); r != nil {
		log.Errorw("goroutine panicked",
			"goroutine", name,
			"panic", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)
	}
}
