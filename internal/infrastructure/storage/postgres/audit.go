// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"branchstock/internal/core/id"
	"branchstock/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used for a payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

const defaultCompressThreshold = 10 * 1024

// AuditEntry is one row of sys_audit.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	Kind              string          `db:"kind"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Actor             string          `db:"actor"`
	ActorID           id.ID           `db:"actor_id"`
	Payload           json.RawMessage `db:"payload"`
	PayloadCompressed []byte          `db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	OccurredAt        time.Time       `db:"occurred_at"`
}

// AuditSink persists audit events to sys_audit.
// Payloads larger than the threshold are stored zstd-compressed.
type AuditSink struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditSink creates a sink. threshold <= 0 selects the 10KB default.
func NewAuditSink(txManager *TxManager, threshold int) (*AuditSink, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if threshold <= 0 {
		threshold = defaultCompressThreshold
	}

	return &AuditSink{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: threshold,
	}, nil
}

// Write implements audit.Sink.
func (s *AuditSink) Write(ctx context.Context, e audit.Event) error {
	entry, err := s.encode(e)
	if err != nil {
		return err
	}

	sql := `
		INSERT INTO sys_audit (
			id, kind, entity_type, entity_id, actor, actor_id,
			payload, payload_compressed, compression_algo, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = s.txManager.GetQuerier(ctx).Exec(ctx, sql,
		entry.ID, entry.Kind, entry.EntityType, entry.EntityID,
		entry.Actor, entry.ActorID,
		entry.Payload, entry.PayloadCompressed, entry.CompressionAlgo,
		entry.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// encode turns an event into a row, compressing large payloads.
func (s *AuditSink) encode(e audit.Event) (AuditEntry, error) {
	entry := AuditEntry{
		ID:              id.New(),
		Kind:            string(e.Kind),
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		Actor:           e.Actor,
		ActorID:         e.ActorID,
		CompressionAlgo: CompressionNone,
		OccurredAt:      e.OccurredAt,
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	if len(e.Payload) == 0 {
		return entry, nil
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return entry, fmt.Errorf("marshal audit payload: %w", err)
	}

	if len(payload) > s.compressThreshold {
		entry.PayloadCompressed = s.encoder.EncodeAll(payload, nil)
		entry.CompressionAlgo = CompressionZstd
		return entry, nil
	}
	entry.Payload = payload
	return entry, nil
}

// decode restores a compressed payload in place.
func (s *AuditSink) decode(entry *AuditEntry) error {
	if entry.CompressionAlgo != CompressionZstd || len(entry.PayloadCompressed) == 0 {
		return nil
	}
	raw, err := s.decoder.DecodeAll(entry.PayloadCompressed, nil)
	if err != nil {
		return fmt.Errorf("decompress payload: %w", err)
	}
	entry.Payload = raw
	entry.PayloadCompressed = nil
	return nil
}

// History returns the newest audit entries for an entity.
func (s *AuditSink) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	sql := `
		SELECT id, kind, entity_type, entity_id, actor, actor_id,
		       payload, payload_compressed, compression_algo, occurred_at
		FROM sys_audit
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(
			&e.ID, &e.Kind, &e.EntityType, &e.EntityID, &e.Actor, &e.ActorID,
			&e.Payload, &e.PayloadCompressed, &e.CompressionAlgo, &e.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if err := s.decode(&e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
