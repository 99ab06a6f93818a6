package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrNotChargeable        = errors.New("subscription is not chargeable")
	ErrInvalidEventKind     = errors.New("invalid event kind")
	ErrHistoryImmutable     = errors.New("history record is immutable")
)

func ErrInvalidTransition(from, to string) error {
	return fmt.Errorf("invalid status transition from %s to %s", from, to)
}
