package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jawssame7/taskstack/internal/app/tasks"
	"github.com/jawssame7/taskstack/internal/contracts"
)

type stubReader struct {
	task contracts.Task
	err  error

	gotID string
}

func (s *stubReader) Get(_ context.Context, id string) (contracts.Task, error) {
	s.gotID = id
	return s.task, s.err
}

func payload(t *testing.T, msg contracts.TaskMessage) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return data
}

func TestHandle_InvalidPayload(t *testing.T) {
	svc := NewService(&stubReader{}, zerolog.Nop())
	err := svc.Handle(context.Background(), []byte("{invalid json"))
	if !errors.Is(err, ErrInvalidMessagePayload) {
		t.Fatalf("expected ErrInvalidMessagePayload, got %v", err)
	}
}

func TestHandle_UnsupportedAction(t *testing.T) {
	svc := NewService(&stubReader{}, zerolog.Nop())
	err := svc.Handle(context.Background(), payload(t, contracts.TaskMessage{TaskID: "t-1", Action: "ARCHIVE"}))
	if !errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("expected ErrUnsupportedAction, got %v", err)
	}
}

func TestHandle_CreateDispatchesHook(t *testing.T) {
	svc := NewService(&stubReader{}, zerolog.Nop())
	var got contracts.TaskMessage
	svc.OnCreated = func(_ context.Context, msg contracts.TaskMessage) error {
		got = msg
		return nil
	}

	msg := contracts.TaskMessage{MessageID: "m-1", TaskID: "t-1", Action: contracts.ActionCreate, Timestamp: time.Now().UTC()}
	if err := svc.Handle(context.Background(), payload(t, msg)); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if got.TaskID != "t-1" || got.Action != contracts.ActionCreate {
		t.Fatalf("hook not invoked with message: %+v", got)
	}
}

func TestHandle_DefaultHooksAreNoOps(t *testing.T) {
	svc := NewService(&stubReader{task: contracts.Task{ID: "t-1", Status: contracts.StatusTodo}}, zerolog.Nop())
	for _, action := range []contracts.TaskAction{contracts.ActionCreate, contracts.ActionUpdate, contracts.ActionDelete} {
		if err := svc.Handle(context.Background(), payload(t, contracts.TaskMessage{TaskID: "t-1", Action: action})); err != nil {
			t.Fatalf("action %s: expected no-op success, got %v", action, err)
		}
	}
}

func TestHandle_UpdateFiresCompletionOnDone(t *testing.T) {
	reader := &stubReader{task: contracts.Task{ID: "t-1", Status: contracts.StatusDone}}
	svc := NewService(reader, zerolog.Nop())
	var completed contracts.Task
	svc.OnCompleted = func(_ context.Context, task contracts.Task) error {
		completed = task
		return nil
	}

	if err := svc.Handle(context.Background(), payload(t, contracts.TaskMessage{TaskID: "t-1", Action: contracts.ActionUpdate})); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if reader.gotID != "t-1" {
		t.Fatal("task was not re-fetched")
	}
	if completed.ID != "t-1" {
		t.Fatalf("completion hook not fired: %+v", completed)
	}
}

func TestHandle_UpdateSkipsCompletionWhenNotDone(t *testing.T) {
	reader := &stubReader{task: contracts.Task{ID: "t-1", Status: contracts.StatusInProgress}}
	svc := NewService(reader, zerolog.Nop())
	svc.OnCompleted = func(context.Context, contracts.Task) error {
		t.Fatal("completion hook must not fire")
		return nil
	}

	if err := svc.Handle(context.Background(), payload(t, contracts.TaskMessage{TaskID: "t-1", Action: contracts.ActionUpdate})); err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
}

func TestHandle_UpdateToleratesDeletedTask(t *testing.T) {
	reader := &stubReader{err: tasks.ErrTaskNotFound}
	svc := NewService(reader, zerolog.Nop())

	if err := svc.Handle(context.Background(), payload(t, contracts.TaskMessage{TaskID: "gone", Action: contracts.ActionUpdate})); err != nil {
		t.Fatalf("deleted task should not fail the message, got %v", err)
	}
}

func TestHandle_TransientReadFailurePropagates(t *testing.T) {
	reader := &stubReader{err: errors.New("store down")}
	svc := NewService(reader, zerolog.Nop())

	err := svc.Handle(context.Background(), payload(t, contracts.TaskMessage{TaskID: "t-1", Action: contracts.ActionUpdate}))
	if err == nil {
		t.Fatal("transient failure must propagate so the message is redelivered")
	}
	if errors.Is(err, ErrInvalidMessagePayload) || errors.Is(err, ErrUnsupportedAction) {
		t.Fatalf("transient failure must not look like a poison message: %v", err)
	}
}
