package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/model"
)

// Handler processes one delivered task. Returning an error leaves the task
// unacknowledged, so the transport redelivers it; handlers must therefore
// tolerate seeing the same task more than once.
type Handler func(ctx context.Context, task model.DispatchTask) error

// Queue is the durable, at-least-once channel between campaign dispatch and
// the consumer. PublishBatch returns only once the whole batch is accepted,
// or fails the batch as a unit.
type Queue interface {
	PublishBatch(ctx context.Context, tasks []model.DispatchTask) error
	Consume(ctx context.Context, handler Handler) error
	Close() error
}

// InMemoryQueue implements Queue over a buffered channel, for tests and
// broker-less runs. A failed handler invocation re-enqueues the task, which
// mirrors the redelivery behavior of the AMQP transport. Shutdown is
// signaled through a separate done channel; the task channel itself is
// never closed, so publishes and redeliveries that race Close cannot panic.
type InMemoryQueue struct {
	tasks chan model.DispatchTask
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewInMemoryQueue(buffer int) *InMemoryQueue {
	if buffer < 1 {
		buffer = 1024
	}
	return &InMemoryQueue{
		tasks: make(chan model.DispatchTask, buffer),
		done:  make(chan struct{}),
	}
}

func (q *InMemoryQueue) PublishBatch(ctx context.Context, tasks []model.DispatchTask) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return &appErrors.QueuePublishError{TaskIDs: taskIDs(tasks), Err: errors.New("queue closed")}
	}

	for i, task := range tasks {
		select {
		case q.tasks <- task:
		case <-q.done:
			return &appErrors.QueuePublishError{TaskIDs: taskIDs(tasks[i:]), Err: errors.New("queue closed")}
		case <-ctx.Done():
			return &appErrors.QueuePublishError{TaskIDs: taskIDs(tasks[i:]), Err: ctx.Err()}
		}
	}
	return nil
}

func (q *InMemoryQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-q.done:
			return nil
		case task := <-q.tasks:
			if err := handler(ctx, task); err != nil {
				// Redeliver after a short pause so a persistently failing
				// task does not spin the loop. A queue closed mid-flight
				// drops the redelivery instead of crashing.
				time.Sleep(50 * time.Millisecond)
				select {
				case q.tasks <- task:
				case <-q.done:
					return nil
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}

func taskIDs(tasks []model.DispatchTask) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.TaskID)
	}
	return ids
}
