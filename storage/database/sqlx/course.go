package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

type courseRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Content      string    `db:"content"`
	PriceInPaise int64     `db:"price_in_paise"`
	CreatorID    string    `db:"creator_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	DeletedAt    null.Time `db:"deleted_at"`
}

type materialRow struct {
	ID          string    `db:"id"`
	CourseID    string    `db:"course_id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Type        string    `db:"type"`
	Content     string    `db:"content"`
	FileURL     string    `db:"file_url"`
	FileType    string    `db:"file_type"`
	FileSize    int64     `db:"file_size"`
	Order       int       `db:"order"`
	Duration    int       `db:"duration"`
	IsPreview   bool      `db:"is_preview"`
	Published   bool      `db:"published"`
	CreatorID   string    `db:"creator_id"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	DeletedAt   null.Time `db:"deleted_at"`
}

type enrollmentRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	CourseID  string    `db:"course_id"`
	Role      string    `db:"role"`
	Status    string    `db:"status"`
	Remarks   string    `db:"remarks"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	DeletedAt null.Time `db:"deleted_at"`
}

func courseFromRow(row courseRow) course.Course {
	return course.Course(row)
}

func materialFromRow(row materialRow) course.Material {
	return course.Material(row)
}

func enrollmentFromRow(row enrollmentRow) course.Enrollment {
	return course.Enrollment(row)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.New().String()
	row := courseRow(crs)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO course (id, title, content, price_in_paise, creator_id, created_at, updated_at)
		VALUES (:id, :title, :content, :price_in_paise, :creator_id, :created_at, :updated_at)`,
		row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]course.Course, int, error) {
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
		if filter.CreatorID != "" {
			where += " AND creator_id = " + arg(filter.CreatorID)
		}
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT count(*) FROM course "+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting courses")
	}

	query := "SELECT * FROM course " + where +
		orderClause(ordering, "created_at DESC", "title", "price_in_paise", "created_at") +
		pageClause(page)
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, courseFromRow(row))
	}
	return courses, total, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM course WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "finding course")
	}
	return courseFromRow(row), nil
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	row := courseRow(crs)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE course
		SET title = :title, content = :content, price_in_paise = :price_in_paise, updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`,
		row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	return repo.softDelete(ctx, "course", ids)
}

func (repo courseRepository) CreateMaterial(ctx context.Context, mat course.Material) (course.Material, error) {
	mat.ID = uuid.New().String()
	row := materialRow(mat)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO material (id, course_id, name, description, type, content, file_url, file_type, file_size,
		                      "order", duration, is_preview, published, creator_id, created_at, updated_at)
		VALUES (:id, :course_id, :name, :description, :type, :content, :file_url, :file_type, :file_size,
		        :order, :duration, :is_preview, :published, :creator_id, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Material{}, course.ErrMaterialExists
		}
		return course.Material{}, errors.Wrap(err, "inserting material")
	}
	return mat, nil
}

func (repo courseRepository) QueryMaterials(ctx context.Context, courseID string, publishedOnly bool) ([]course.Material, error) {
	query := `SELECT * FROM material WHERE course_id = $1 AND deleted_at IS NULL`
	if publishedOnly {
		query += " AND published"
	}
	query += ` ORDER BY "order"`

	var rows []materialRow
	if err := repo.db.SelectContext(ctx, &rows, query, courseID); err != nil {
		return nil, errors.Wrap(err, "querying materials")
	}
	mats := make([]course.Material, 0, len(rows))
	for _, row := range rows {
		mats = append(mats, materialFromRow(row))
	}
	return mats, nil
}

func (repo courseRepository) GetMaterial(ctx context.Context, id string) (course.Material, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Material{}, course.ErrMaterialNotFound
	}
	var row materialRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM material WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Material{}, course.ErrMaterialNotFound
		}
		return course.Material{}, errors.Wrap(err, "finding material")
	}
	return materialFromRow(row), nil
}

func (repo courseRepository) UpdateMaterial(ctx context.Context, mat course.Material) (course.Material, error) {
	row := materialRow(mat)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE material
		SET name = :name, description = :description, type = :type, content = :content, file_url = :file_url,
		    file_type = :file_type, file_size = :file_size, "order" = :order, duration = :duration,
		    is_preview = :is_preview, published = :published, updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`,
		row)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Material{}, course.ErrMaterialExists
		}
		return course.Material{}, errors.Wrap(err, "updating material")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Material{}, course.ErrMaterialNotFound
	}
	return mat, nil
}

func (repo courseRepository) DeleteMaterialsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.softDelete(ctx, "material", ids)
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	enr.ID = uuid.New().String()
	row := enrollmentRow(enr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO enrollment (id, user_id, course_id, role, status, remarks, created_at, updated_at)
		VALUES (:id, :user_id, :course_id, :role, :status, :remarks, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
		return course.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return enr, nil
}

func (repo courseRepository) QueryCourseEnrollments(ctx context.Context, courseID string) ([]course.Enrollment, error) {
	return repo.queryEnrollments(ctx, "course_id", courseID)
}

func (repo courseRepository) QueryUserEnrollments(ctx context.Context, userID string) ([]course.Enrollment, error) {
	return repo.queryEnrollments(ctx, "user_id", userID)
}

func (repo courseRepository) queryEnrollments(ctx context.Context, column, id string) ([]course.Enrollment, error) {
	var rows []enrollmentRow
	query := fmt.Sprintf("SELECT * FROM enrollment WHERE %s = $1 AND deleted_at IS NULL ORDER BY created_at", column)
	if err := repo.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]course.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, enrollmentFromRow(row))
	}
	return enrs, nil
}

func (repo courseRepository) GetEnrollment(ctx context.Context, id string) (course.Enrollment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM enrollment WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return enrollmentFromRow(row), nil
}

func (repo courseRepository) GetUserEnrollment(ctx context.Context, userID, courseID string) (course.Enrollment, error) {
	var row enrollmentRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT * FROM enrollment WHERE user_id = $1 AND course_id = $2 AND deleted_at IS NULL", userID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return course.Enrollment{}, course.ErrEnrollmentNotFound
		}
		return course.Enrollment{}, errors.Wrap(err, "finding enrollment")
	}
	return enrollmentFromRow(row), nil
}

func (repo courseRepository) UpdateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	row := enrollmentRow(enr)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE enrollment
		SET role = :role, status = :status, remarks = :remarks, updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`,
		row)
	if err != nil {
		return course.Enrollment{}, errors.Wrap(err, "updating enrollment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	return enr, nil
}

func (repo courseRepository) DeleteEnrollmentsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.softDelete(ctx, "enrollment", ids)
}

// ActiveEnrollmentUserIDs feeds the notification fan-out's audience lookups.
// Any live (non-soft-deleted) enrollment counts, whatever its status.
func (repo courseRepository) ActiveEnrollmentUserIDs(ctx context.Context, courseID string) ([]string, error) {
	var ids []string
	err := repo.db.SelectContext(ctx, &ids, `
		SELECT user_id FROM enrollment
		WHERE course_id = $1 AND deleted_at IS NULL
		ORDER BY created_at`,
		courseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrolled user IDs")
	}
	return ids, nil
}

func (repo courseRepository) softDelete(ctx context.Context, table string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(
		fmt.Sprintf("UPDATE %s SET deleted_at = now() WHERE id IN (?) AND deleted_at IS NULL", table), ids)
	if err != nil {
		return 0, errors.Wrapf(err, "deleting from %s", table)
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrapf(err, "deleting from %s", table)
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
