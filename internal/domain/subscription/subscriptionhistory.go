package subscription

import (
	"errors"
	"time"

	vo "github.com/orris-inc/paybridge/internal/domain/subscription/valueobjects"
	"github.com/orris-inc/paybridge/internal/shared/biztime"
)

// SubscriptionHistory is an insert-only audit record of one applied event.
type SubscriptionHistory struct {
	id             uint
	subscriptionID uint
	eventType      EventKind
	fromStatus     vo.SubscriptionStatus
	toStatus       vo.SubscriptionStatus
	reason         string
	metadata       map[string]interface{}
	createdAt      time.Time
}

func newHistoryFromEvent(subscriptionID uint, ev Event, from, to vo.SubscriptionStatus) *SubscriptionHistory {
	metadata := make(map[string]interface{}, len(ev.Metadata)+2)
	for k, v := range ev.Metadata {
		metadata[k] = v
	}
	if ev.Source != "" {
		metadata["source"] = ev.Source
	}
	if ev.Amount != 0 {
		metadata["amount"] = ev.Amount
	}

	return &SubscriptionHistory{
		subscriptionID: subscriptionID,
		eventType:      ev.Kind,
		fromStatus:     from,
		toStatus:       to,
		reason:         ev.Reason,
		metadata:       metadata,
		createdAt:      biztime.NowUTC(),
	}
}

func ReconstructSubscriptionHistory(
	id uint,
	subscriptionID uint,
	eventType EventKind,
	fromStatus, toStatus vo.SubscriptionStatus,
	reason string,
	metadata map[string]interface{},
	createdAt time.Time,
) (*SubscriptionHistory, error) {
	if id == 0 {
		return nil, errors.New("history ID cannot be zero")
	}
	if subscriptionID == 0 {
		return nil, errors.New("subscription ID cannot be zero")
	}
	if !eventType.IsValid() {
		return nil, ErrInvalidEventKind
	}
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &SubscriptionHistory{
		id:             id,
		subscriptionID: subscriptionID,
		eventType:      eventType,
		fromStatus:     fromStatus,
		toStatus:       toStatus,
		reason:         reason,
		metadata:       metadata,
		createdAt:      createdAt,
	}, nil
}

func (h *SubscriptionHistory) ID() uint                          { return h.id }
func (h *SubscriptionHistory) SubscriptionID() uint              { return h.subscriptionID }
func (h *SubscriptionHistory) EventType() EventKind              { return h.eventType }
func (h *SubscriptionHistory) FromStatus() vo.SubscriptionStatus { return h.fromStatus }
func (h *SubscriptionHistory) ToStatus() vo.SubscriptionStatus   { return h.toStatus }
func (h *SubscriptionHistory) Reason() string                    { return h.reason }
func (h *SubscriptionHistory) Metadata() map[string]interface{}  { return h.metadata }
func (h *SubscriptionHistory) CreatedAt() time.Time              { return h.createdAt }

// SetID sets the history ID once after insert.
func (h *SubscriptionHistory) SetID(id uint) error {
	if h.id != 0 {
		return ErrHistoryImmutable
	}
	h.id = id
	return nil
}

// BindSubscription fills the subscription ID for records produced before the
// subscription row existed.
func (h *SubscriptionHistory) BindSubscription(subscriptionID uint) {
	if h.subscriptionID == 0 {
		h.subscriptionID = subscriptionID
	}
}
