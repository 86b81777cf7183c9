package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/AchilleasB/blood-donation/donation-process-service/internal/core/ports"
)

func (rmq *RabbitMQBroker) PublishTransition(ctx context.Context, evt ports.TransitionEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err = rmq.cb.Execute(func() (interface{}, error) {
		confirmation, err := rmq.ch.PublishWithDeferredConfirmWithContext(
			ctx,
			"",            // exchange (default)
			rmq.queueName, // routing key == queue name
			false,         // mandatory
			false,         // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    evt.EventID,
				Type:         ports.TransitionEventType,
				Timestamp:    evt.OccurredAt,
				Body:         body,
			},
		)
		if err != nil {
			return nil, err
		}
		acked, err := confirmation.WaitContext(ctx)
		if err != nil {
			return nil, err
		}
		if !acked {
			return nil, fmt.Errorf("broker nacked event %s", evt.EventID)
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	rmq.logger.Debug("transition event published",
		zap.String("event_id", evt.EventID),
		zap.String("process_id", evt.ProcessID),
		zap.String("to", string(evt.ToState)))
	return nil
}
