package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// NotificationPublisher defines the interface for handing notifications
// to the outbound queue. Implementations must never be called inside a
// transactional boundary; callers fire after commit and ignore failures
// beyond logging them.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, payload NotificationPayload) error
}

// rabbitMQPublisher implements NotificationPublisher over a dedicated channel.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQNotificationPublisher opens a channel and declares the
// notification queue. Declaring from the publisher side keeps startup
// order between this service and the notification consumer irrelevant;
// the parameters must match the consumer's declaration.
func NewRabbitMQNotificationPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (NotificationPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("notification publisher: failed to open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("notification publisher: failed to declare queue %q: %w", queueName, err)
	}
	return &rabbitMQPublisher{
		channel:   ch,
		queueName: queueName,
		logger:    logger.Named("NotificationPublisher"),
	}, nil
}

func (p *rabbitMQPublisher) PublishNotification(ctx context.Context, payload NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notification publisher: failed to marshal payload: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx,
		"",          // exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish notification",
			zap.String("templateID", payload.TemplateID),
			zap.Error(err),
		)
		return fmt.Errorf("notification publisher: failed to publish: %w", err)
	}
	p.logger.Debug("Notification published", zap.String("templateID", payload.TemplateID))
	return nil
}
