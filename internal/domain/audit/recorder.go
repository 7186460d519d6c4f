// Package audit emits business events with an actor label.
// Delivery is best effort: a failing sink never fails the business operation.
package audit

import (
	"context"
	"time"

	appctx "branchstock/internal/core/context"
	"branchstock/internal/core/id"
	"branchstock/pkg/logger"
)

// Kind names an audited event.
type Kind string

const (
	KindTransferCreated   Kind = "transfer.created"
	KindTransferReceived  Kind = "transfer.received"
	KindTransferCancelled Kind = "transfer.cancelled"
	KindLotCreated        Kind = "lot.created"
)

// Event is one audited business fact.
type Event struct {
	Kind       Kind           `json:"kind"`
	Actor      string         `json:"actor"`
	ActorID    id.ID          `json:"actorId"`
	EntityType string         `json:"entityType"`
	EntityID   id.ID          `json:"entityId"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

// Sink stores events. Implementations may be slow or fail.
type Sink interface {
	Write(ctx context.Context, e Event) error
}

// Recorder logs every event and forwards it to an optional sink.
type Recorder struct {
	sink Sink
}

// NewRecorder creates a Recorder. sink may be nil.
func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record logs e and writes it to the sink. Sink errors are logged and dropped.
func (r *Recorder) Record(ctx context.Context, actor appctx.Actor, e Event) {
	e.Actor = actor.Label()
	e.ActorID = actor.UserID
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	kv := []any{
		"event", string(e.Kind),
		"actor", e.Actor,
		"entity_type", e.EntityType,
		"entity_id", e.EntityID,
	}
	for k, v := range e.Payload {
		kv = append(kv, k, v)
	}
	logger.Info(ctx, string(e.Kind), kv...)

	if r == nil || r.sink == nil {
		return
	}
	if err := r.sink.Write(ctx, e); err != nil {
		logger.Warn(ctx, "audit sink write failed", "event", string(e.Kind), "error", err)
	}
}
