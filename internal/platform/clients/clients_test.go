package clients

import (
	"testing"

	"github.com/jawssame7/taskstack/internal/platform/environment"
)

func TestTableName(t *testing.T) {
	if got := tableName("dev", ""); got != "tasks-table-dev" {
		t.Fatalf("unexpected table name %q", got)
	}
	if got := tableName("dev", "custom-table"); got != "custom-table" {
		t.Fatalf("override should win, got %q", got)
	}
}

func TestBucketName(t *testing.T) {
	if got := bucketName("prod", "", ""); got != "files-bucket-prod" {
		t.Fatalf("unexpected bucket name %q", got)
	}
	if got := bucketName("prod", "a1b2", ""); got != "files-bucket-prod-a1b2" {
		t.Fatalf("suffix should be appended, got %q", got)
	}
	if got := bucketName("prod", "a1b2", "my-bucket"); got != "my-bucket" {
		t.Fatalf("override should win, got %q", got)
	}
}

func TestQueueURL(t *testing.T) {
	local := environment.Environment{Mode: environment.ModeLocal, EmulatorHost: "localhost", Region: "us-east-1"}
	if got := queueURL(local, ""); got != "nats://localhost:4222" {
		t.Fatalf("unexpected local queue url %q", got)
	}

	remote := environment.Environment{Mode: environment.ModeRemote, Region: "eu-west-1"}
	if got := queueURL(remote, ""); got != "nats://queue.eu-west-1.mq.example.com:4222" {
		t.Fatalf("unexpected remote queue url %q", got)
	}

	if got := queueURL(remote, "nats://broker.internal:4222"); got != "nats://broker.internal:4222" {
		t.Fatalf("explicit url override should win, got %q", got)
	}
}

func TestLoad_LocalModeUsesEmulatorEndpoints(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "TABLE_NAME", "BUCKET_NAME", "BUCKET_SUFFIX", "QUEUE_URL", "OBJECT_STORE_ENDPOINT", "OBJECT_STORE_SSL"} {
		t.Setenv(key, "")
	}
	e := environment.Environment{
		Stage:        environment.StageLocal,
		Mode:         environment.ModeLocal,
		Region:       "us-east-1",
		EmulatorHost: "localhost",
		AccessKey:    "test",
		SecretKey:    "test",
	}

	cfg := Load(e)
	if cfg.Store.Table != "tasks-table-local" {
		t.Fatalf("unexpected table %q", cfg.Store.Table)
	}
	if cfg.Objects.Endpoint != "localhost:9000" || cfg.Objects.UseSSL {
		t.Fatalf("unexpected object store config %+v", cfg.Objects)
	}
	if cfg.Objects.AccessKey != "test" || cfg.Objects.SecretKey != "test" {
		t.Fatalf("expected placeholder credentials, got %+v", cfg.Objects)
	}
	if cfg.Queue.URL != "nats://localhost:4222" || cfg.Queue.Subject != "task.events" {
		t.Fatalf("unexpected queue config %+v", cfg.Queue)
	}
}
