package notifier

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/jawssame7/taskstack/internal/app/tasks"
	"github.com/jawssame7/taskstack/internal/contracts"
	"github.com/jawssame7/taskstack/internal/platform/metrics"
)

// ErrInvalidMessagePayload marks a message that can never be processed.
var ErrInvalidMessagePayload = errors.New("invalid task message payload")

// ErrUnsupportedAction marks an action this consumer does not know.
var ErrUnsupportedAction = errors.New("unsupported task action")

// TaskReader looks up the current task state for a message.
type TaskReader interface {
	Get(ctx context.Context, id string) (contracts.Task, error)
}

// Hook reacts to one lifecycle message. Messages are delivered at least once
// and possibly out of order, so hooks must stay idempotent.
type Hook func(ctx context.Context, msg contracts.TaskMessage) error

// CompletionHook fires when an updated task has reached DONE. This is the
// extension point for completion side effects.
type CompletionHook func(ctx context.Context, task contracts.Task) error

// Service dispatches task lifecycle messages from the queue.
type Service struct {
	Tasks  TaskReader
	Logger zerolog.Logger

	OnCreated   Hook
	OnUpdated   Hook
	OnDeleted   Hook
	OnCompleted CompletionHook
}

func NewService(taskReader TaskReader, logger zerolog.Logger) *Service {
	return &Service{Tasks: taskReader, Logger: logger}
}

// Handle processes one queue message. It returns ErrInvalidMessagePayload or
// ErrUnsupportedAction for messages that should not be redelivered; any other
// error is transient and the caller naks the message for redelivery.
func (s *Service) Handle(ctx context.Context, payload []byte) error {
	var msg contracts.TaskMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		metrics.QueueMessages.WithLabelValues("unknown", "invalid").Inc()
		return ErrInvalidMessagePayload
	}

	var err error
	switch msg.Action {
	case contracts.ActionCreate:
		err = s.runHook(ctx, s.OnCreated, msg)
	case contracts.ActionUpdate:
		err = s.handleUpdate(ctx, msg)
	case contracts.ActionDelete:
		err = s.runHook(ctx, s.OnDeleted, msg)
	default:
		metrics.QueueMessages.WithLabelValues(string(msg.Action), "invalid").Inc()
		return ErrUnsupportedAction
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.QueueMessages.WithLabelValues(string(msg.Action), result).Inc()
	return err
}

// handleUpdate re-fetches the task and fires the completion hook when it has
// reached DONE. A task deleted between the update and this read is nothing
// to react to.
func (s *Service) handleUpdate(ctx context.Context, msg contracts.TaskMessage) error {
	if err := s.runHook(ctx, s.OnUpdated, msg); err != nil {
		return err
	}
	task, err := s.Tasks.Get(ctx, msg.TaskID)
	if err != nil {
		if errors.Is(err, tasks.ErrTaskNotFound) {
			s.Logger.Debug().Str("task_id", msg.TaskID).Msg("updated task no longer exists")
			return nil
		}
		return err
	}
	if task.Status != contracts.StatusDone {
		return nil
	}
	if s.OnCompleted == nil {
		s.Logger.Info().Str("task_id", task.ID).Msg("task completed")
		return nil
	}
	return s.OnCompleted(ctx, task)
}

func (s *Service) runHook(ctx context.Context, hook Hook, msg contracts.TaskMessage) error {
	if hook == nil {
		s.Logger.Debug().Str("task_id", msg.TaskID).Str("action", string(msg.Action)).Msg("task message received")
		return nil
	}
	return hook(ctx, msg)
}
