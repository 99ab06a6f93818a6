package webhook

import (
	"context"
	"time"

	"github.com/orris-inc/paybridge/internal/domain/shared"
)

type ProcessedEventRepository interface {
	// IsAccepted reports whether a delivery with this identity was already
	// acknowledged for processing.
	IsAccepted(ctx context.Context, gateway shared.Gateway, requestID string) (bool, error)
	// Claim stores an accepted pending record. It reports false when another
	// delivery already claimed the identity; a rejected record is taken over.
	Claim(ctx context.Context, event *ProcessedEvent) (bool, error)
	// RecordRejection stores or refreshes a rejected record. An accepted
	// record with the same identity is left untouched.
	RecordRejection(ctx context.Context, event *ProcessedEvent) error
	Get(ctx context.Context, gateway shared.Gateway, requestID string) (*ProcessedEvent, error)
	// Finalize writes the final outcome only while the stored row is pending.
	Finalize(ctx context.Context, event *ProcessedEvent) error
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]*ProcessedEvent, error)
}
