package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// NotificationRepository encapsulates per-user notification rows. All
// mutating methods are scoped by recipient: a user can never read or touch
// another user's copies.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, id, userID string, now time.Time) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, userID string, now time.Time) (int, error)
	Delete(ctx context.Context, id, userID string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository instantiates repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = `id, user_id, title, message, notification_type, related_entity_type, related_entity_id,
               is_read, created_at, read_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (user_id, title, message, notification_type, related_entity_type, related_entity_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, is_read, created_at`
	var relatedType, relatedID *string
	if n.Related != nil {
		relatedType = &n.Related.Type
		relatedID = &n.Related.ID
	}
	return r.pool.QueryRow(ctx, query,
		n.UserID,
		n.Title,
		n.Message,
		n.Type,
		relatedType,
		relatedID,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, int, error) {
	where := `user_id=$1`
	if unreadOnly {
		where += ` AND is_read = FALSE`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` + where +
		` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications, err := scanNotifications(rows)
	if err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND is_read = FALSE`, userID).Scan(&count)
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string, now time.Time) (*domain.Notification, error) {
	const query = `
        UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $3)
        WHERE id=$1 AND user_id=$2
        RETURNING ` + notificationColumns
	rows, err := r.pool.Query(ctx, query, id, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications, err := scanNotifications(rows)
	if err != nil {
		return nil, err
	}
	if len(notifications) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &notifications[0], nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string, now time.Time) (int, error) {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, read_at = $2 WHERE user_id=$1 AND is_read = FALSE`,
		userID, now)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func (r *notificationRepository) Delete(ctx context.Context, id, userID string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var relatedType, relatedID *string
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Title,
			&n.Message,
			&n.Type,
			&relatedType,
			&relatedID,
			&n.IsRead,
			&n.CreatedAt,
			&n.ReadAt,
		); err != nil {
			return nil, err
		}
		if relatedType != nil && relatedID != nil {
			n.Related = &domain.RelatedEntity{Type: *relatedType, ID: *relatedID}
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
