package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/model"
)

// AMQPQueue implements Queue over a RabbitMQ durable queue. The client is
// constructed explicitly and injected; the producer keeps one long-lived
// channel in confirm mode and publishes persistent messages, so a batch is
// either confirmed in full or surfaced as a QueuePublishError.
type AMQPQueue struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	confirms  chan amqp.Confirmation
	queueName string
	prefetch  int
	log       zerolog.Logger

	mu      sync.Mutex // serializes publish batches on the shared channel
	nextTag uint64     // delivery tag the next publish will be assigned
}

func NewAMQPQueue(url, queueName string, prefetch int, log zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	return &AMQPQueue{
		conn:      conn,
		ch:        ch,
		confirms:  ch.NotifyPublish(make(chan amqp.Confirmation, 4096)),
		queueName: queueName,
		prefetch:  prefetch,
		log:       log,
		nextTag:   1,
	}, nil
}

// PublishBatch appends all tasks to the queue and waits for a broker
// confirm per task. Unconfirmed task IDs are enumerated in the returned
// QueuePublishError.
func (q *AMQPQueue) PublishBatch(ctx context.Context, tasks []model.DispatchTask) error {
	if len(tasks) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	firstTag := q.nextTag
	for _, task := range tasks {
		body, err := json.Marshal(task)
		if err != nil {
			return &appErrors.QueuePublishError{TaskIDs: []string{task.TaskID}, Err: err}
		}
		err = q.ch.Publish(
			"",          // default exchange
			q.queueName, // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    task.TaskID,
				Body:         body,
			},
		)
		if err != nil {
			return &appErrors.QueuePublishError{TaskIDs: taskIDs(tasks), Err: err}
		}
		q.nextTag++
	}

	return collectConfirms(ctx, q.confirms, firstTag, tasks)
}

// collectConfirms waits for one broker confirmation per task, matched to its
// task by delivery tag. Confirmations carrying a tag below firstTag belong
// to a batch that aborted before collecting them; they are skipped, so an
// aborted batch cannot desynchronize the accounting of the next one.
func collectConfirms(ctx context.Context, confirms <-chan amqp.Confirmation, firstTag uint64, tasks []model.DispatchTask) error {
	var failed []string
	received := 0
	for received < len(tasks) {
		select {
		case confirm, ok := <-confirms:
			if !ok {
				return &appErrors.QueuePublishError{TaskIDs: taskIDs(tasks), Err: fmt.Errorf("channel closed while awaiting confirms")}
			}
			if confirm.DeliveryTag < firstTag {
				continue
			}
			idx := confirm.DeliveryTag - firstTag
			if idx >= uint64(len(tasks)) {
				continue
			}
			if !confirm.Ack {
				failed = append(failed, tasks[idx].TaskID)
			}
			received++
		case <-ctx.Done():
			return &appErrors.QueuePublishError{TaskIDs: taskIDs(tasks), Err: ctx.Err()}
		}
	}
	if len(failed) > 0 {
		return &appErrors.QueuePublishError{TaskIDs: failed, Err: fmt.Errorf("broker rejected %d of %d tasks", len(failed), len(tasks))}
	}
	return nil
}

// Consume delivers queued tasks to the handler with manual acknowledgment.
// A handler error nacks the delivery back onto the queue; an undecodable
// payload is acked away so it cannot wedge the queue. Returns after ctx is
// canceled, once in-flight deliveries have drained.
func (q *AMQPQueue) Consume(ctx context.Context, handler Handler) error {
	if err := q.ch.Qos(q.prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	tag := "campaign-consumer-" + uuid.NewString()
	deliveries, err := q.ch.Consume(
		q.queueName,
		tag,
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := q.ch.Cancel(tag, false); err != nil {
			q.log.Warn().Err(err).Msg("cancel consumer")
		}
	}()

	for d := range deliveries {
		var task model.DispatchTask
		if err := json.Unmarshal(d.Body, &task); err != nil {
			q.log.Error().Err(err).Str("message_id", d.MessageId).Msg("dropping undecodable task")
			if err := d.Ack(false); err != nil {
				return fmt.Errorf("ack poison message: %w", err)
			}
			continue
		}

		if err := handler(ctx, task); err != nil {
			q.log.Warn().Err(err).
				Str("task_id", task.TaskID).
				Int("campaign_id", task.CampaignID).
				Msg("task failed, returning to queue")
			if err := d.Nack(false, true); err != nil {
				return fmt.Errorf("nack task: %w", err)
			}
			continue
		}

		if err := d.Ack(false); err != nil {
			return fmt.Errorf("ack task: %w", err)
		}
	}
	return nil
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
