package appErrors

import (
	"fmt"
	"strings"
)

// NotFoundError reports a missing campaign, customer or log row.
type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Resource, e.ID)
}

func NewCampaignNotFound(id int) error { return &NotFoundError{Resource: "campaign", ID: id} }
func NewCustomerNotFound(id int) error { return &NotFoundError{Resource: "customer", ID: id} }
func NewLogNotFound(id int) error      { return &NotFoundError{Resource: "communications log", ID: id} }

// ValidationError reports malformed caller input. Never retried.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// QueuePublishError reports a failed dispatch batch. TaskIDs lists the tasks
// the broker did not confirm; an empty list means the whole batch never left.
type QueuePublishError struct {
	TaskIDs []string
	Err     error
}

func (e *QueuePublishError) Error() string {
	if len(e.TaskIDs) == 0 {
		return fmt.Sprintf("queue publish failed: %v", e.Err)
	}
	return fmt.Sprintf("queue publish failed for tasks [%s]: %v", strings.Join(e.TaskIDs, ", "), e.Err)
}

func (e *QueuePublishError) Unwrap() error { return e.Err }
