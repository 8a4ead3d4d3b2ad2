package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/announcement"
)

type announcementRepository struct {
	db *sqlx.DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sqlx.DB) *announcementRepository {
	return &announcementRepository{db: db}
}

type announcementRow struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Message     string         `db:"message"`
	Type        string         `db:"type"`
	CourseID    null.String    `db:"course_id"`
	Target      string         `db:"target"`
	Status      string         `db:"status"`
	Attachments pq.StringArray `db:"attachments"`
	PublishedAt null.Time      `db:"published_at"`
	ExpiresAt   null.Time      `db:"expires_at"`
	CreatorID   string         `db:"creator_id"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	DeletedAt   null.Time      `db:"deleted_at"`
}

func (repo announcementRepository) toRow(ann announcement.Announcement) announcementRow {
	return announcementRow{
		ID:          ann.ID,
		Title:       ann.Title,
		Message:     ann.Message,
		Type:        ann.Type,
		CourseID:    null.NewString(ann.CourseID, ann.CourseID != ""),
		Target:      ann.Target,
		Status:      ann.Status,
		Attachments: ann.Attachments,
		PublishedAt: ann.PublishedAt,
		ExpiresAt:   ann.ExpiresAt,
		CreatorID:   ann.CreatorID,
		CreatedAt:   ann.CreatedAt.UTC(),
		UpdatedAt:   ann.UpdatedAt.UTC(),
		DeletedAt:   ann.DeletedAt,
	}
}

func (repo announcementRepository) fromRow(row announcementRow) announcement.Announcement {
	return announcement.Announcement{
		ID:          row.ID,
		Title:       row.Title,
		Message:     row.Message,
		Type:        row.Type,
		CourseID:    row.CourseID.String,
		Target:      row.Target,
		Status:      row.Status,
		Attachments: row.Attachments,
		PublishedAt: row.PublishedAt,
		ExpiresAt:   row.ExpiresAt,
		CreatorID:   row.CreatorID,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		DeletedAt:   row.DeletedAt,
	}
}

func (repo announcementRepository) CreateAnnouncement(ctx context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	ann.ID = uuid.New().String()
	row := repo.toRow(ann)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO announcement (id, title, message, type, course_id, target, status, attachments,
		                          published_at, expires_at, creator_id, created_at, updated_at)
		VALUES (:id, :title, :message, :type, :course_id, :target, :status, :attachments,
		        :published_at, :expires_at, :creator_id, :created_at, :updated_at)`,
		row)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return ann, nil
}

func (repo announcementRepository) QueryAnnouncements(ctx context.Context, filter *announcement.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]announcement.Announcement, int, error) {
	where := "WHERE deleted_at IS NULL"
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			where += fmt.Sprintf(" AND title ILIKE %s", arg("%"+filter.Search+"%"))
		}
		if filter.CourseID != "" {
			where += " AND course_id = " + arg(filter.CourseID)
		}
		if filter.Status != "" {
			where += " AND status = " + arg(filter.Status)
		}
		if filter.Target != "" {
			where += " AND target = " + arg(filter.Target)
		}
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT count(*) FROM announcement "+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting announcements")
	}

	query := "SELECT * FROM announcement " + where +
		orderClause(ordering, "created_at DESC", "title", "status", "published_at", "created_at") +
		pageClause(page)
	var rows []announcementRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying announcements")
	}

	anns := make([]announcement.Announcement, 0, len(rows))
	for _, row := range rows {
		anns = append(anns, repo.fromRow(row))
	}
	return anns, total, nil
}

func (repo announcementRepository) GetAnnouncement(ctx context.Context, id string) (announcement.Announcement, error) {
	if _, err := uuid.Parse(id); err != nil {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	var row announcementRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM announcement WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return announcement.Announcement{}, announcement.ErrNotFound
		}
		return announcement.Announcement{}, errors.Wrap(err, "finding announcement")
	}
	return repo.fromRow(row), nil
}

func (repo announcementRepository) UpdateAnnouncement(ctx context.Context, ann announcement.Announcement) (announcement.Announcement, error) {
	row := repo.toRow(ann)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE announcement
		SET title = :title, message = :message, type = :type, target = :target, status = :status,
		    attachments = :attachments, published_at = :published_at, expires_at = :expires_at, updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`,
		row)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	return ann, nil
}

func (repo announcementRepository) DeleteAnnouncementsByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("UPDATE announcement SET deleted_at = now() WHERE id IN (?) AND deleted_at IS NULL", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting announcements")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting announcements")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
