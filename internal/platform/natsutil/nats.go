package natsutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type Client struct {
	Conn *nats.Conn
	JS   nats.JetStreamContext
}

// ConnectJetStream connects to the broker and makes sure the stream backing
// the given subject exists.
func ConnectJetStream(url, stream, subject string) (*Client, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		_ = conn.Drain()
		conn.Close()
		return nil, err
	}
	if err := EnsureStream(js, stream, subject); err != nil {
		_ = conn.Drain()
		conn.Close()
		return nil, err
	}
	return &Client{Conn: conn, JS: js}, nil
}

// ConnectJetStreamWithRetry keeps dialing until the broker is reachable or
// the timeout elapses. Local emulation environments routinely start the app
// before the broker is up.
func ConnectJetStreamWithRetry(url, stream, subject string, timeout time.Duration) (*Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ConnectJetStream(url, stream, subject)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return nil, fmt.Errorf("connect jetstream timeout after %s: %w", timeout, lastErr)
}

// EnsureStream creates the stream when it does not exist yet.
func EnsureStream(js nats.JetStreamContext, stream, subject string) error {
	if _, err := js.StreamInfo(stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return err
		}
		if _, addErr := js.AddStream(&nats.StreamConfig{
			Name:      stream,
			Subjects:  []string{subject},
			Retention: nats.LimitsPolicy,
			Storage:   nats.FileStorage,
			Replicas:  1,
		}); addErr != nil {
			return addErr
		}
	}
	return nil
}

func (c *Client) Close() {
	if c == nil || c.Conn == nil {
		return
	}
	_ = c.Conn.Drain()
	c.Conn.Close()
}

// Probe reports whether the broker connection is healthy.
func (c *Client) Probe() error {
	if c == nil || c.Conn == nil {
		return errors.New("queue connection is nil")
	}
	if c.Conn.Status() != nats.CONNECTED {
		return fmt.Errorf("queue is not connected: %s", c.Conn.Status().String())
	}
	if _, err := c.JS.AccountInfo(); err != nil {
		return fmt.Errorf("queue account info failed: %w", err)
	}
	return nil
}

type Publisher interface {
	Publish(subject string, payload []byte) error
}

type JetStreamPublisher struct {
	JS nats.JetStreamContext
}

func (p JetStreamPublisher) Publish(subject string, payload []byte) error {
	_, err := p.JS.Publish(subject, payload)
	return err
}
