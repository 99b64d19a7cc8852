package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
)

// AppendLog writes one interaction log entry. Missing IDs are generated.
func (db *DB) AppendLog(ctx context.Context, entry domain.InteractionLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO interaction_logs (id, chat_id, actor_id, text, originator, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, toUUID(entry.ID), entry.ChatID, entry.ActorID, SanitizeUTF8(entry.Text), string(entry.Originator), toTimestamptz(entry.Timestamp))
	if err != nil {
		return fmt.Errorf("append interaction log: %w", err)
	}

	return nil
}

// CountLogs returns the total number of interaction log entries.
func (db *DB) CountLogs(ctx context.Context) (int64, error) {
	var count int64

	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM interaction_logs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count interaction logs: %w", err)
	}

	return count, nil
}

// RecentLogs returns up to limit entries of a chat created strictly before the given time, oldest first.
func (db *DB) RecentLogs(ctx context.Context, chatID int64, before time.Time, limit int) ([]domain.InteractionLogEntry, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, chat_id, actor_id, text, originator, created_at
		FROM (
			SELECT id, chat_id, actor_id, text, originator, created_at
			FROM interaction_logs
			WHERE chat_id = $1 AND created_at < $2
			ORDER BY created_at DESC
			LIMIT $3
		) recent
		ORDER BY created_at ASC
	`, chatID, toTimestamptz(before), limit)
	if err != nil {
		return nil, fmt.Errorf("query recent interaction logs: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.InteractionLogEntry, 0, limit)

	for rows.Next() {
		var (
			entry      domain.InteractionLogEntry
			id         pgtype.UUID
			originator string
			created    pgtype.Timestamptz
		)

		if err := rows.Scan(&id, &entry.ChatID, &entry.ActorID, &entry.Text, &originator, &created); err != nil {
			return nil, fmt.Errorf("scan interaction log row: %w", err)
		}

		entry.ID = fromUUID(id)
		entry.Originator = domain.Originator(originator)
		entry.Timestamp = fromTimestamptz(created)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interaction log rows: %w", err)
	}

	return entries, nil
}
