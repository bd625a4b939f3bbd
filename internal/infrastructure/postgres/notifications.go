package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/gallery-live/internal/domain"
)

const uniqueViolation = "23505"

const notificationColumns = `id, type, message, entity_id, recipient_id, sender_id, is_read, created_at`

// NotificationRepository stores notifications in the notifications table.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Put inserts a notification. A duplicate id maps to domain.ErrConflict.
func (r *NotificationRepository) Put(ctx context.Context, n *domain.Notification) error {
	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO notifications (`+notificationColumns+`)
		 VALUES (:id, :type, :message, :entity_id, :recipient_id, :sender_id, :is_read, :created_at)`, n)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("notification %s: %w", n.ID, domain.ErrConflict)
		}
		return fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	return nil
}

// Get retrieves a notification by id.
func (r *NotificationRepository) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.GetContext(ctx, &n,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, notificationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get notification %s: %w", notificationID, err)
	}
	return &n, nil
}

// ListUnread returns every unread notification of the recipient, oldest first.
func (r *NotificationRepository) ListUnread(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	out := []domain.Notification{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE recipient_id = $1 AND NOT is_read
		 ORDER BY created_at, id`, recipientID)
	if err != nil {
		return nil, fmt.Errorf("list unread for %s: %w", recipientID, err)
	}
	return out, nil
}

// ListByRecipient returns the newest limit notifications, oldest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	out := []domain.Notification{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT * FROM (
		     SELECT `+notificationColumns+` FROM notifications
		     WHERE recipient_id = $1
		     ORDER BY created_at DESC, id DESC
		     LIMIT $2
		 ) newest ORDER BY created_at, id`, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications for %s: %w", recipientID, err)
	}
	return out, nil
}

// MarkAsRead only ever sets is_read to true.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, notificationID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1`, notificationID)
	if err != nil {
		return fmt.Errorf("mark notification %s read: %w", notificationID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	return nil
}

// MarkAllAsRead flips every unread notification of the recipient and returns how many changed.
func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("mark all read for %s: %w", recipientID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// CountUnread returns the number of unread notifications of the recipient.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`, recipientID)
	if err != nil {
		return 0, fmt.Errorf("count unread for %s: %w", recipientID, err)
	}
	return n, nil
}
