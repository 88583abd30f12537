package domain

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/gofrs/uuid/v5"
)

type OutboxMessage struct {
	ID        uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    *time.Time
}

type OutboxRepository interface {
	Insert(ctx context.Context, msg OutboxMessage, tx *sql.Tx) error
	// FetchPending locks up to limit unsent rows, oldest first.
	FetchPending(ctx context.Context, limit int, tx *sql.Tx) ([]OutboxMessage, error)
	MarkSent(ctx context.Context, ids []uuid.UUID, tx *sql.Tx) error

	WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error
}
