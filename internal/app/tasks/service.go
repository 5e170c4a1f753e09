package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nuid"
	"github.com/rs/zerolog"

	"github.com/jawssame7/taskstack/internal/contracts"
	"github.com/jawssame7/taskstack/internal/platform/metrics"
	"github.com/jawssame7/taskstack/internal/storage"
)

var ErrTaskNotFound = errors.New("task not found")

// RecordStore is the slice of the record-store collaborator the task service
// consumes.
type RecordStore interface {
	Put(ctx context.Context, id, recordType string, doc []byte) error
	Get(ctx context.Context, id string) (string, []byte, error)
	Scan(ctx context.Context, recordType string) ([][]byte, error)
	MergePatch(ctx context.Context, id, recordType string, patch []byte) (bool, error)
	Delete(ctx context.Context, id, recordType string) (bool, error)
}

type PublishFunc func(subject string, payload []byte) error

// Patch is the partial-update payload. ID and CreatedAt have no field here:
// immutable attributes are excluded by type, not stripped at runtime.
type Patch struct {
	Title       *string               `json:"title,omitempty"`
	Description *string               `json:"description,omitempty"`
	Status      *contracts.TaskStatus `json:"status,omitempty"`
}

// Service owns the task lifecycle: CRUD against the record store, then a
// best-effort notification on the queue after each committed mutation.
type Service struct {
	Records RecordStore
	Publish PublishFunc
	Subject string
	Logger  zerolog.Logger

	Now          func() time.Time
	NewID        func() string
	NewMessageID func() string
}

func NewService(records RecordStore, publish PublishFunc, subject string, logger zerolog.Logger) *Service {
	return &Service{
		Records:      records,
		Publish:      publish,
		Subject:      subject,
		Logger:       logger,
		Now:          func() time.Time { return time.Now().UTC() },
		NewID:        uuid.NewString,
		NewMessageID: nuid.Next,
	}
}

// Create persists a new task and emits a CREATE notification. The task is
// created even when the notification fails.
func (s *Service) Create(ctx context.Context, title, description string) (contracts.Task, error) {
	now := s.Now()
	task := contracts.Task{
		ID:          s.NewID(),
		Title:       title,
		Description: description,
		Status:      contracts.StatusTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc, err := json.Marshal(task)
	if err != nil {
		return contracts.Task{}, err
	}
	if err := s.Records.Put(ctx, task.ID, contracts.RecordTypeTask, doc); err != nil {
		metrics.TaskOperations.WithLabelValues("create", "error").Inc()
		return contracts.Task{}, fmt.Errorf("create task: %w", err)
	}
	metrics.TaskOperations.WithLabelValues("create", "ok").Inc()
	s.notify(task.ID, contracts.ActionCreate)
	return task, nil
}

// Get returns the task or ErrTaskNotFound. Records carrying a different type
// tag under the same id are treated as absent.
func (s *Service) Get(ctx context.Context, id string) (contracts.Task, error) {
	recordType, doc, err := s.Records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return contracts.Task{}, ErrTaskNotFound
		}
		return contracts.Task{}, fmt.Errorf("get task: %w", err)
	}
	if recordType != contracts.RecordTypeTask {
		return contracts.Task{}, ErrTaskNotFound
	}
	var task contracts.Task
	if err := json.Unmarshal(doc, &task); err != nil {
		return contracts.Task{}, fmt.Errorf("decode task %s: %w", id, err)
	}
	return task, nil
}

// List returns every task, unordered.
func (s *Service) List(ctx context.Context) ([]contracts.Task, error) {
	docs, err := s.Records.Scan(ctx, contracts.RecordTypeTask)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	result := make([]contracts.Task, 0, len(docs))
	for _, doc := range docs {
		var task contracts.Task
		if err := json.Unmarshal(doc, &task); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		result = append(result, task)
	}
	return result, nil
}

// Update merges the patch into the stored task. A missing id returns
// ErrTaskNotFound without writing anything or emitting a message. On success
// the task is re-read, so the returned record reflects any concurrent write
// that landed between the merge and the read.
func (s *Service) Update(ctx context.Context, id string, patch Patch) (contracts.Task, error) {
	fields := map[string]any{"updatedAt": s.Now()}
	if patch.Title != nil {
		fields["title"] = *patch.Title
	}
	if patch.Description != nil {
		fields["description"] = *patch.Description
	}
	if patch.Status != nil {
		fields["status"] = *patch.Status
	}
	doc, err := json.Marshal(fields)
	if err != nil {
		return contracts.Task{}, err
	}

	written, err := s.Records.MergePatch(ctx, id, contracts.RecordTypeTask, doc)
	if err != nil {
		metrics.TaskOperations.WithLabelValues("update", "error").Inc()
		return contracts.Task{}, fmt.Errorf("update task: %w", err)
	}
	if !written {
		return contracts.Task{}, ErrTaskNotFound
	}
	metrics.TaskOperations.WithLabelValues("update", "ok").Inc()
	s.notify(id, contracts.ActionUpdate)
	return s.Get(ctx, id)
}

// Delete removes the task and reports whether it existed. A missing id emits
// no message.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.Records.Delete(ctx, id, contracts.RecordTypeTask)
	if err != nil {
		metrics.TaskOperations.WithLabelValues("delete", "error").Inc()
		return false, fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return false, nil
	}
	metrics.TaskOperations.WithLabelValues("delete", "ok").Inc()
	s.notify(id, contracts.ActionDelete)
	return true, nil
}

// notify publishes the lifecycle message for a committed mutation. Policy:
// notify-after-commit, log-on-failure. A publish failure never turns a
// completed store write into an error.
func (s *Service) notify(taskID string, action contracts.TaskAction) {
	msg := contracts.TaskMessage{
		MessageID: s.NewMessageID(),
		TaskID:    taskID,
		Action:    action,
		Timestamp: s.Now(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.Logger.Error().Err(err).Str("task_id", taskID).Msg("failed to encode task notification")
		metrics.TaskNotifications.WithLabelValues(string(action), "error").Inc()
		return
	}
	if err := s.Publish(s.Subject, payload); err != nil {
		s.Logger.Error().Err(err).Str("task_id", taskID).Str("action", string(action)).Msg("failed to publish task notification")
		metrics.TaskNotifications.WithLabelValues(string(action), "error").Inc()
		return
	}
	metrics.TaskNotifications.WithLabelValues(string(action), "ok").Inc()
}
