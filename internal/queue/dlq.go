package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DeadLetterQueueName    = "localize_requests_dlq"
	DeadLetterExchangeName = "localize_dlq"
)

// SetupDeadLetterQueue sets up the dead letter queue infrastructure.
// Requests land here when their handler fails; operators can inspect
// and resubmit them, the pipeline itself never retries implicitly.
func (q *Queue) SetupDeadLetterQueue() error {
	// Declare dead letter exchange
	err := q.channel.ExchangeDeclare(
		DeadLetterExchangeName,
		"direct",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ exchange: %w", err)
	}

	// Declare dead letter queue
	_, err = q.channel.QueueDeclare(
		DeadLetterQueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	// Bind DLQ to exchange
	err = q.channel.QueueBind(
		DeadLetterQueueName,
		DeadLetterQueueName,
		DeadLetterExchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	return nil
}

// sendToDeadLetter copies a failed delivery onto the DLQ annotated with
// the failure reason. Failures here are logged only; the nack of the
// original delivery must proceed either way.
func (q *Queue) sendToDeadLetter(ctx context.Context, body []byte, cause error) {
	err := q.channel.PublishWithContext(ctx,
		DeadLetterExchangeName,
		DeadLetterQueueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			Headers: amqp.Table{
				"x-failure-reason": cause.Error(),
			},
		},
	)
	if err != nil {
		log.Printf("Failed to publish to DLQ: %v", err)
	}
}

// GetDeadLetterDepth returns the number of messages in the DLQ
func (q *Queue) GetDeadLetterDepth() (int, error) {
	info, err := q.channel.QueueInspect(DeadLetterQueueName)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect DLQ: %w", err)
	}

	return info.Messages, nil
}
