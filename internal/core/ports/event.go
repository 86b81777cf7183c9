package ports

import (
	"context"
	"time"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/domain"
)

const TransitionEventType = "donation.transition"

type TransitionEvent struct {
	EventID    string            `json:"event_id"`
	ProcessID  string            `json:"process_id"`
	DonorID    string            `json:"donor_id"`
	Transition domain.Transition `json:"transition"`
	FromState  domain.Status     `json:"from_state"`
	ToState    domain.Status     `json:"to_state"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// TransitionNotifier is told about every committed transition. Delivery to
// donors (mail, SMS, push) happens behind it.
type TransitionNotifier interface {
	Notify(ctx context.Context, evt TransitionEvent) error
}

// TransitionPublisher pushes events onto the message broker.
type TransitionPublisher interface {
	PublishTransition(ctx context.Context, evt TransitionEvent) error
}
