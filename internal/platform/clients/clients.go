// Package clients turns a resolved environment into ready-to-use
// configuration for the three collaborators: the record store, the object
// store, and the queue. Each binary calls Load once and passes the result
// down; no client is rebuilt per request.
package clients

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jawssame7/taskstack/internal/platform/env"
	"github.com/jawssame7/taskstack/internal/platform/environment"
)

const (
	defaultMinConns        = 2
	defaultMaxConns        = 20
	defaultMaxConnLifetime = 30 * time.Minute
	defaultMaxConnIdleTime = 5 * time.Minute
	defaultHealthCheck     = 30 * time.Second

	remoteQueueDomain = "mq.example.com"
	localQueuePort    = 4222
	localObjectPort   = 9000
)

// StoreConfig configures the record-store collaborator.
type StoreConfig struct {
	DatabaseURL string
	Table       string
}

// ObjectStoreConfig configures the object-store collaborator.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
}

// QueueConfig configures the queue collaborator.
type QueueConfig struct {
	URL     string
	Stream  string
	Subject string
	Durable string
}

// Config bundles the per-collaborator configuration derived from one
// resolved environment.
type Config struct {
	Env     environment.Environment
	Store   StoreConfig
	Objects ObjectStoreConfig
	Queue   QueueConfig
}

// Load derives all collaborator configuration from the environment. Explicit
// overrides (TABLE_NAME, BUCKET_NAME, QUEUE_URL, DATABASE_URL,
// OBJECT_STORE_ENDPOINT) always win over the derived values.
func Load(e environment.Environment) Config {
	return Config{
		Env: e,
		Store: StoreConfig{
			DatabaseURL: env.String("DATABASE_URL", env.DefaultDatabaseURL),
			Table:       tableName(e.Stage, env.String("TABLE_NAME", "")),
		},
		Objects: ObjectStoreConfig{
			Endpoint:  objectEndpoint(e, env.String("OBJECT_STORE_ENDPOINT", "")),
			AccessKey: e.AccessKey,
			SecretKey: e.SecretKey,
			UseSSL:    env.Bool("OBJECT_STORE_SSL", !e.Local()),
			Region:    e.Region,
			Bucket:    bucketName(e.Stage, env.String("BUCKET_SUFFIX", ""), env.String("BUCKET_NAME", "")),
		},
		Queue: QueueConfig{
			URL:     queueURL(e, env.String("QUEUE_URL", "")),
			Stream:  "TASK_EVENTS",
			Subject: "task.events",
			Durable: "notifier",
		},
	}
}

// tableName derives the logical table name, tasks-table-<stage>.
func tableName(stage, override string) string {
	if override != "" {
		return override
	}
	return "tasks-table-" + stage
}

// bucketName derives the logical bucket name, files-bucket-<stage> with an
// optional suffix for global uniqueness.
func bucketName(stage, suffix, override string) string {
	if override != "" {
		return override
	}
	name := "files-bucket-" + stage
	if suffix != "" {
		name += "-" + suffix
	}
	return name
}

// queueURL builds the broker address. An explicit full-URL override always
// wins; otherwise local mode targets the emulator host and remote mode the
// region-qualified broker endpoint.
func queueURL(e environment.Environment, override string) string {
	if override != "" {
		return override
	}
	if e.Local() {
		return fmt.Sprintf("nats://%s:%d", e.EmulatorHost, localQueuePort)
	}
	return fmt.Sprintf("nats://queue.%s.%s:%d", e.Region, remoteQueueDomain, localQueuePort)
}

func objectEndpoint(e environment.Environment, override string) string {
	if override != "" {
		return override
	}
	if e.Local() {
		return fmt.Sprintf("%s:%d", e.EmulatorHost, localObjectPort)
	}
	return fmt.Sprintf("s3.%s.amazonaws.com", e.Region)
}

// NewStorePool opens the record-store connection pool with bounded
// connection counts and lifetimes.
func NewStorePool(ctx context.Context, cfg StoreConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	minConns := env.Int("DB_MIN_CONNS", defaultMinConns)
	maxConns := env.Int("DB_MAX_CONNS", defaultMaxConns)
	if minConns < 0 {
		minConns = defaultMinConns
	}
	if maxConns <= 0 {
		maxConns = defaultMaxConns
	}
	if minConns > maxConns {
		minConns = maxConns
	}

	poolCfg.MinConns = int32(minConns)
	poolCfg.MaxConns = int32(maxConns)
	poolCfg.MaxConnLifetime = env.Duration("DB_MAX_CONN_LIFETIME", defaultMaxConnLifetime)
	poolCfg.MaxConnIdleTime = env.Duration("DB_MAX_CONN_IDLE_TIME", defaultMaxConnIdleTime)
	poolCfg.HealthCheckPeriod = env.Duration("DB_HEALTH_CHECK_PERIOD", defaultHealthCheck)

	return pgxpool.NewWithConfig(ctx, poolCfg)
}
