package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

type notificationRow struct {
	ID          string    `db:"id"`
	Message     string    `db:"message"`
	Kind        string    `db:"kind"`
	CreatorID   string    `db:"creator_id"`
	RecipientID string    `db:"recipient_id"`
	IsRead      bool      `db:"is_read"`
	ReadAt      null.Time `db:"read_at"`
	ExpiresAt   null.Time `db:"expires_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	DeletedAt   null.Time `db:"deleted_at"`
}

const notifInsert = `
	INSERT INTO notification (id, message, kind, creator_id, recipient_id, is_read,
	                          read_at, expires_at, created_at, updated_at)
	VALUES (:id, :message, :kind, :creator_id, :recipient_id, :is_read,
	        :read_at, :expires_at, :created_at, :updated_at)`

// CreateNotifications writes the batch in a single multi-row insert. If the
// batch insert fails it retries row by row so one bad record cannot sink its
// siblings, and reports how many rows actually landed.
func (repo notificationRepository) CreateNotifications(ctx context.Context, notifs []notification.Notification) (int, error) {
	if len(notifs) == 0 {
		return 0, nil
	}

	rows := make([]notificationRow, 0, len(notifs))
	for _, notif := range notifs {
		notif.ID = uuid.New().String()
		rows = append(rows, notificationRow(notif))
	}

	if _, err := repo.db.NamedExecContext(ctx, notifInsert, rows); err == nil {
		return len(rows), nil
	}

	var created int
	var firstErr error
	for _, row := range rows {
		if _, err := repo.db.NamedExecContext(ctx, notifInsert, row); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created++
	}
	return created, errors.Wrapf(firstErr, "inserting notifications, %d of %d failed", len(rows)-created, len(rows))
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, recipientID string, filter *notification.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]notification.Notification, int, error) {
	where := "WHERE recipient_id = $1 AND deleted_at IS NULL AND (expires_at IS NULL OR expires_at > now())"
	args := []interface{}{recipientID}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			where += " AND message ILIKE " + arg("%"+filter.Search+"%")
		}
		if filter.Kind != "" {
			where += " AND kind = " + arg(filter.Kind)
		}
		if filter.IsRead != nil {
			where += " AND is_read = " + arg(*filter.IsRead)
		}
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT count(*) FROM notification "+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting notifications")
	}

	query := "SELECT * FROM notification " + where +
		orderClause(ordering, "created_at DESC", "kind", "is_read", "created_at") +
		pageClause(page)
	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying notifications")
	}

	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		notifs = append(notifs, notification.Notification(row))
	}
	return notifs, total, nil
}

func (repo notificationRepository) GetNotification(ctx context.Context, id string) (notification.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}
	var row notificationRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM notification WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, errors.Wrap(err, "finding notification")
	}
	return notification.Notification(row), nil
}

func (repo notificationRepository) MarkNotificationsRead(ctx context.Context, recipientID string, readAt time.Time, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`
		UPDATE notification SET is_read = TRUE, read_at = ?, updated_at = ?
		WHERE recipient_id = ? AND id IN (?) AND is_read = FALSE AND deleted_at IS NULL`,
		readAt, readAt, recipientID, ids)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

func (repo notificationRepository) DeleteNotificationsByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("UPDATE notification SET deleted_at = now() WHERE id IN (?) AND deleted_at IS NULL", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting notifications")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting notifications")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
