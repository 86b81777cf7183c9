package notification

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

// LogNotifier writes committed transition events to the service log. With
// PostgreSQL the process store also records them in the outbox for the
// relay.
type LogNotifier struct {
	logger *zap.Logger
}

var _ ports.TransitionNotifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notification")}
}

func (n *LogNotifier) Notify(ctx context.Context, evt ports.TransitionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("donor notification",
		zap.String("event_id", evt.EventID),
		zap.String("process_id", evt.ProcessID),
		zap.String("donor_id", evt.DonorID),
		zap.String("transition", string(evt.Transition)),
		zap.String("from", string(evt.FromState)),
		zap.String("to", string(evt.ToState)),
		zap.String("occurred_at", evt.OccurredAt.Format(time.RFC3339)))
	return nil
}
