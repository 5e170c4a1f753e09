package contracts

import "time"

// TaskStatus is the lifecycle state of a task. Updates accept any of the
// declared values without enforcing a transition graph.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusDone       TaskStatus = "DONE"
)

// Valid reports whether s is one of the declared statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	default:
		return false
	}
}

// Task is the persisted to-do record. ID and CreatedAt are assigned once at
// creation and never overwritten by an update.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// FileMetadata describes an uploaded object. The record may exist before the
// object itself does: it is written when the upload URL is issued, against the
// size the caller declared.
type FileMetadata struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploadedAt"`
	URL         string    `json:"url"`
}

// TaskAction labels a task mutation on the queue.
type TaskAction string

const (
	ActionCreate TaskAction = "CREATE"
	ActionUpdate TaskAction = "UPDATE"
	ActionDelete TaskAction = "DELETE"
)

// TaskMessage is the event envelope published after every task mutation.
// Delivery is at-least-once and possibly out of order; consumers must stay
// idempotent.
type TaskMessage struct {
	MessageID string     `json:"messageId"`
	TaskID    string     `json:"taskId"`
	Action    TaskAction `json:"action"`
	Timestamp time.Time  `json:"timestamp"`
}

// Record type tags discriminating co-located documents in the record store.
const (
	RecordTypeTask = "task"
	RecordTypeFile = "file"
)
