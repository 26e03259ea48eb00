package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"firecontrol/src/firecmd"
)

// StreamDispatcher pushes fire commands over a persistent websocket to the
// agent. Writes serialize on a mutex; a broken connection is redialed on
// the next Enqueue rather than in the background.
type StreamDispatcher struct {
	url    string
	apiKey string

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewStreamDispatcher(config Config) *StreamDispatcher {
	return &StreamDispatcher{
		url:    config.StreamURL,
		apiKey: config.APIKey,
	}
}

func (d *StreamDispatcher) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	header := map[string][]string{
		"x-agent-access-token": {d.apiKey},
	}

	conn, _, err := dialer.DialContext(ctx, d.url, header)
	if err != nil {
		return fmt.Errorf("dial agent stream %s: %w", d.url, err)
	}

	d.conn = conn
	logger.WithFields(map[string]interface{}{
		"component": "StreamDispatcher",
		"url":       d.url,
	}).Info("Agent stream connected")

	return nil
}

// Enqueue writes the command envelope to the stream. One reconnect attempt
// is made on a stale connection; anything beyond that is the caller's
// backoff policy.
func (d *StreamDispatcher) Enqueue(ctx context.Context, cmd *firecmd.FireCommand) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		if err := d.dial(ctx); err != nil {
			return err
		}
	}

	envelope := command{
		EnvelopeID: uuid.NewString(),
		Command:    cmd,
	}

	if err := d.conn.WriteJSON(envelope); err != nil {
		logger.WithFields(map[string]interface{}{
			"component": "StreamDispatcher",
			"fire_id":   cmd.FireID,
		}).WithError(err).Warn("Stream write failed, redialing once")

		_ = d.conn.Close()
		d.conn = nil

		if err := d.dial(ctx); err != nil {
			return err
		}
		if err := d.conn.WriteJSON(envelope); err != nil {
			_ = d.conn.Close()
			d.conn = nil
			return fmt.Errorf("push fire command %s: %w", cmd.FireID, err)
		}
	}

	logger.WithFields(map[string]interface{}{
		"component": "StreamDispatcher",
		"fire_id":   cmd.FireID,
		"agent_id":  cmd.AgentID,
		"symbol":    cmd.Symbol,
	}).Info("Fire command pushed to stream")

	return nil
}

// Close shuts the stream down.
func (d *StreamDispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return nil
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}
