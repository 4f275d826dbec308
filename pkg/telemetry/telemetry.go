// Package telemetry publishes request and transfer lifecycle events to
// Redis for a host process that wants to observe an in-progress transfer
// out-of-band. It is purely observational: nothing in the wire protocol
// reads it back, and a publish failure never propagates to the caller.
package telemetry

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// HashKey holds the most recent event per request id; Channel is where
// every event is also published live. Mirrors the teacher's
// WriteAndPublishString: one pipelined HSet+Publish per update.
const (
	HashKey = "uftpc:last_event"
	Channel = "uftpc:events"
)

// Event mirrors the JSON object published for each lifecycle step.
type Event struct {
	RequestID string `json:"request_id"`
	Code      byte   `json:"code"`
	Op        string `json:"op"`
	OK        bool   `json:"ok"`
	Bytes     int64  `json:"bytes"`
	Err       string `json:"err,omitempty"`
	TSUnixMs  int64  `json:"ts_unix_ms"`
}

// Sink publishes Events to Redis. The zero value is not usable; construct
// with New.
type Sink struct {
	client    *redis.Client
	ctx       context.Context
	requestID string
}

// New connects to a Redis server at addr and returns a Sink. Each Sink
// tags every event it publishes with a fresh per-session request id, the
// way the teacher's redis client tags hash fields by key — here there is
// no server-assigned correlation id on the wire (spec §4.5: the engine
// never sees one), so the id is purely a local telemetry convenience.
func New(addr, password string, db int) (*Sink, error) {
	rc := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx := context.Background()
	if err := rc.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Sink{client: rc, ctx: ctx, requestID: uuid.NewString()}, nil
}

// Close closes the underlying Redis client.
func (s *Sink) Close() error {
	return s.client.Close()
}

// Event publishes one lifecycle event: the hash field for this session's
// request id is updated and the event is published to Channel in the same
// pipeline, the same way the teacher's WriteAndPublishString does a
// HSet+Publish in one Exec. Failures are logged and swallowed: telemetry
// must never perturb protocol timing or surface as a caller error.
func (s *Sink) Event(code byte, op string, ok bool, bytes int64, errMsg string) {
	ev := Event{
		RequestID: s.requestID,
		Code:      code,
		Op:        op,
		OK:        ok,
		Bytes:     bytes,
		Err:       errMsg,
		TSUnixMs:  time.Now().UnixMilli(),
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("telemetry: marshal event: %v", err)
		return
	}

	pipe := s.client.Pipeline()
	pipe.HSet(s.ctx, HashKey, s.requestID, string(payload))
	pipe.Publish(s.ctx, Channel, string(payload))
	if _, err := pipe.Exec(s.ctx); err != nil {
		log.Printf("telemetry: publish event: %v", err)
	}
}
