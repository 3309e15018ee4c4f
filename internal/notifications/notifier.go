package notifications

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventIssuanceRequested EventType = "issuance_requested"
	EventIssuanceApproved  EventType = "issuance_approved"
	EventIssuanceRejected  EventType = "issuance_rejected"
	EventIssuanceReturned  EventType = "issuance_returned"
	EventOverdueDetected   EventType = "overdue_detected"
	EventOverdueConfirmed  EventType = "overdue_confirmed"
	EventDamagedItems      EventType = "damaged_items_reported"
	EventCalibrationDue    EventType = "calibration_due"
)

// Event is one outbound notification. Delivery is best-effort; producers
// must never treat a failed Notify as a failure of the operation that
// raised the event.
type Event struct {
	ID         string                 `json:"id"`
	Type       EventType              `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Recipients []string               `json:"recipients,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

type Notifier interface {
	Notify(event Event) error
}

func NewEvent(eventType EventType, recipients []string, payload map[string]interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now(),
		Recipients: recipients,
		Payload:    payload,
	}
}
