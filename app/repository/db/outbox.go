package db

import (
	"context"
	"database/sql"
	"log/slog"
	"storefront/app/domain"
	"storefront/pkg"

	"github.com/gofrs/uuid/v5"
)

type outboxRepository struct {
	conn *sql.DB
}

func NewOutboxRepository(db *sql.DB) domain.OutboxRepository {
	return &outboxRepository{db}
}

func (r *outboxRepository) Insert(ctx context.Context, msg domain.OutboxMessage, tx *sql.Tx) error {
	query := `INSERT INTO outbox_messages (id, event_type, payload) VALUES ($1, $2, $3)`

	if _, err := tx.ExecContext(ctx, query, msg.ID, msg.EventType, []byte(msg.Payload)); err != nil {
		slog.ErrorContext(ctx, "[outboxRepository] Insert", "execContext", err)
		return err
	}
	return nil
}

func (r *outboxRepository) FetchPending(ctx context.Context, limit int, tx *sql.Tx) ([]domain.OutboxMessage, error) {
	query := `SELECT id, event_type, payload, created_at
	FROM outbox_messages
	WHERE sent_at IS NULL
	ORDER BY created_at
	LIMIT $1
	FOR UPDATE SKIP LOCKED`

	rows, err := tx.QueryContext(ctx, query, limit)
	if err != nil {
		slog.ErrorContext(ctx, "[outboxRepository] FetchPending", "queryContext", err)
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage
		var payload []byte
		if err := rows.Scan(&msg.ID, &msg.EventType, &payload, &msg.CreatedAt); err != nil {
			slog.ErrorContext(ctx, "[outboxRepository] FetchPending", "scan", err)
			return nil, err
		}
		msg.Payload = payload
		msgs = append(msgs, msg)
	}

	if err := rows.Err(); err != nil {
		slog.ErrorContext(ctx, "[outboxRepository] FetchPending", "rowError", err)
		return nil, err
	}

	return msgs, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, ids []uuid.UUID, tx *sql.Tx) error {
	if len(ids) == 0 {
		return nil
	}

	args := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id.String())
	}

	query := `UPDATE outbox_messages SET sent_at = NOW() WHERE id = ANY($1::uuid[])`
	if _, err := tx.ExecContext(ctx, query, args); err != nil {
		slog.ErrorContext(ctx, "[outboxRepository] MarkSent", "execContext", err)
		return err
	}
	return nil
}

func (r *outboxRepository) WithTransaction(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	return pkg.WithTransaction(ctx, r.conn, "[outboxRepository] WithTransaction", fn)
}
