package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/ekki-bot/internal/core/domain"
)

const identityColumns = `kind, external_id, display_name, handle, blocked, last_seen_at, created_at`

// UpsertIdentity inserts the identity unblocked or refreshes the stored one.
// Name and handle follow the newest observation and last_seen_at never moves backwards,
// so concurrent writers converge on the maximum timestamp.
func (db *DB) UpsertIdentity(ctx context.Context, patch domain.IdentityPatch) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO identities (kind, external_id, display_name, handle, blocked, last_seen_at, created_at)
		VALUES ($1, $2, $3, $4, FALSE, $5, $5)
		ON CONFLICT (kind, external_id) DO UPDATE SET
			display_name = CASE WHEN EXCLUDED.last_seen_at >= identities.last_seen_at
				THEN EXCLUDED.display_name ELSE identities.display_name END,
			handle = CASE WHEN EXCLUDED.last_seen_at >= identities.last_seen_at
				THEN EXCLUDED.handle ELSE identities.handle END,
			last_seen_at = GREATEST(identities.last_seen_at, EXCLUDED.last_seen_at)
	`, string(patch.Kind), patch.ExternalID, SanitizeUTF8(patch.DisplayName), toText(patch.Handle), toTimestamptz(patch.LastSeenAt))
	if err != nil {
		return fmt.Errorf("upsert %s identity %d: %w", patch.Kind, patch.ExternalID, err)
	}

	return nil
}

// GetIdentity returns nil without error when the identity does not exist.
func (db *DB) GetIdentity(ctx context.Context, kind domain.IdentityKind, externalID int64) (*domain.Identity, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE kind = $1 AND external_id = $2
	`, string(kind), externalID)

	identity, err := scanIdentity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get %s identity %d: %w", kind, externalID, err)
	}

	return &identity, nil
}

// SetBlocked updates the blocked flag. It reports false when no identity matched.
func (db *DB) SetBlocked(ctx context.Context, kind domain.IdentityKind, externalID int64, blocked bool) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE identities SET blocked = $3
		WHERE kind = $1 AND external_id = $2
	`, string(kind), externalID, blocked)
	if err != nil {
		return false, fmt.Errorf("set blocked on %s identity %d: %w", kind, externalID, err)
	}

	if tag.RowsAffected() == 0 {
		db.Logger.Debug().Str(logFieldKind, string(kind)).Int64(logFieldExternalID, externalID).Msg("block toggle matched no identity")

		return false, nil
	}

	return true, nil
}

// CountIdentities counts identities matching the filter.
func (db *DB) CountIdentities(ctx context.Context, filter domain.IdentityFilter) (int64, error) {
	var count int64

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM identities
		WHERE ($1::text IS NULL OR kind = $1)
		  AND ($2::boolean IS NULL OR blocked = $2)
	`, filterKind(filter), filterBlocked(filter)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}

	return count, nil
}

// ListRecentIdentities lists identities matching the filter, most recently seen first.
func (db *DB) ListRecentIdentities(ctx context.Context, filter domain.IdentityFilter, limit int) ([]domain.Identity, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+identityColumns+`
		FROM identities
		WHERE ($1::text IS NULL OR kind = $1)
		  AND ($2::boolean IS NULL OR blocked = $2)
		ORDER BY last_seen_at DESC
		LIMIT $3
	`, filterKind(filter), filterBlocked(filter), limit)
	if err != nil {
		return nil, fmt.Errorf("list recent identities: %w", err)
	}
	defer rows.Close()

	identities := make([]domain.Identity, 0, limit)

	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity row: %w", err)
		}

		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity rows: %w", err)
	}

	return identities, nil
}

func scanIdentity(row pgx.Row) (domain.Identity, error) {
	var (
		identity domain.Identity
		kind     string
		handle   pgtype.Text
		lastSeen pgtype.Timestamptz
		created  pgtype.Timestamptz
	)

	if err := row.Scan(&kind, &identity.ExternalID, &identity.DisplayName, &handle, &identity.Blocked, &lastSeen, &created); err != nil {
		return domain.Identity{}, err //nolint:wrapcheck // callers wrap with query context
	}

	identity.Kind = domain.IdentityKind(kind)
	identity.Handle = fromText(handle)
	identity.LastSeenAt = fromTimestamptz(lastSeen)
	identity.CreatedAt = fromTimestamptz(created)

	return identity, nil
}

func filterKind(filter domain.IdentityFilter) pgtype.Text {
	return pgtype.Text{String: string(filter.Kind), Valid: filter.Kind != ""}
}

func filterBlocked(filter domain.IdentityFilter) pgtype.Bool {
	if filter.Blocked == nil {
		return pgtype.Bool{}
	}

	return pgtype.Bool{Bool: *filter.Blocked, Valid: true}
}
