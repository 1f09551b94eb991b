package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Store interface {
	CreateIfAbsent(ctx context.Context, params CreateParams) (Notification, bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, user_id, type, title, message, subscription_id, read, scheduled_for, sent_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (Notification, error) {
	var (
		n            Notification
		typ          string
		subID        uuid.NullUUID
		scheduledFor sql.NullTime
		sentAt       sql.NullTime
	)

	if err := row.Scan(&n.ID, &n.UserID, &typ, &n.Title, &n.Message, &subID, &n.Read, &scheduledFor, &sentAt, &n.CreatedAt); err != nil {
		return Notification{}, err
	}

	n.Type = Type(typ)
	if subID.Valid {
		n.SubscriptionID = &subID.UUID
	}
	if scheduledFor.Valid {
		n.ScheduledFor = &scheduledFor.Time
	}
	if sentAt.Valid {
		n.SentAt = &sentAt.Time
	}
	return n, nil
}

// CreateIfAbsent inserts the notification unless one already exists for the
// same subscription, type and scheduled date. The bool reports whether a row
// was created.
func (r *Repository) CreateIfAbsent(ctx context.Context, params CreateParams) (Notification, bool, error) {
	const query = `
		INSERT INTO notifications (user_id, type, title, message, subscription_id, scheduled_for, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (subscription_id, type, scheduled_for) DO NOTHING
		RETURNING ` + columns

	var subID uuid.NullUUID
	if params.SubscriptionID != nil {
		subID = uuid.NullUUID{UUID: *params.SubscriptionID, Valid: true}
	}
	var scheduledFor sql.NullTime
	if params.ScheduledFor != nil {
		scheduledFor = sql.NullTime{Time: *params.ScheduledFor, Valid: true}
	}

	n, err := scanNotification(r.db.QueryRowContext(ctx, query,
		params.UserID,
		string(params.Type),
		params.Title,
		params.Message,
		subID,
		scheduledFor,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Notification{}, false, nil
		}
		return Notification{}, false, fmt.Errorf("insert notification: %w", err)
	}
	return n, true, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]Notification, error) {
	query := `
		SELECT ` + columns + `
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read = false`
	}
	query += `
		ORDER BY created_at DESC
		LIMIT 100`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (r *Repository) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	const query = `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
