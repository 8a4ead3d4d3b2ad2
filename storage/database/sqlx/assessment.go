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
	"github.com/campushub/backend/core/assessment"
)

type assessmentRepository struct {
	db *sqlx.DB
}

var _ assessment.Repository = (*assessmentRepository)(nil) // interface compliance check

func NewAssessmentRepository(db *sqlx.DB) *assessmentRepository {
	return &assessmentRepository{db: db}
}

type assessmentRow struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	Description   string         `db:"description"`
	Type          string         `db:"type"`
	CourseID      string         `db:"course_id"`
	InstitutionID null.String    `db:"institution_id"`
	DueDate       time.Time      `db:"due_date"`
	MaxMarks      int            `db:"max_marks"`
	Files         pq.StringArray `db:"files"`
	CreatorID     string         `db:"creator_id"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	DeletedAt     null.Time      `db:"deleted_at"`
}

type submissionRow struct {
	ID            string         `db:"id"`
	AssessmentID  string         `db:"assessment_id"`
	UserID        string         `db:"user_id"`
	InstitutionID null.String    `db:"institution_id"`
	SubmittedAt   null.Time      `db:"submitted_at"`
	Files         pq.StringArray `db:"files"`
	Marks         null.Int       `db:"marks"`
	Feedback      string         `db:"feedback"`
	Status        string         `db:"status"`
	ResultID      null.String    `db:"result_id"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	DeletedAt     null.Time      `db:"deleted_at"`
}

type resultRow struct {
	ID           string    `db:"id"`
	EnrollmentID string    `db:"enrollment_id"`
	AssessmentID string    `db:"assessment_id"`
	SubmissionID string    `db:"submission_id"`
	CourseID     string    `db:"course_id"`
	UserID       string    `db:"user_id"`
	CreatorID    string    `db:"creator_id"`
	Marks        int       `db:"marks"`
	Grade        string    `db:"grade"`
	AcademicYear int       `db:"academic_year"`
	Remarks      string    `db:"remarks"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	DeletedAt    null.Time `db:"deleted_at"`
}

func (repo assessmentRepository) toAssessmentRow(asm assessment.Assessment) assessmentRow {
	return assessmentRow{
		ID:            asm.ID,
		Title:         asm.Title,
		Description:   asm.Description,
		Type:          asm.Type,
		CourseID:      asm.CourseID,
		InstitutionID: null.NewString(asm.InstitutionID, asm.InstitutionID != ""),
		DueDate:       asm.DueDate.UTC(),
		MaxMarks:      asm.MaxMarks,
		Files:         asm.Files,
		CreatorID:     asm.CreatorID,
		CreatedAt:     asm.CreatedAt.UTC(),
		UpdatedAt:     asm.UpdatedAt.UTC(),
		DeletedAt:     asm.DeletedAt,
	}
}

func (repo assessmentRepository) fromAssessmentRow(row assessmentRow) assessment.Assessment {
	return assessment.Assessment{
		ID:            row.ID,
		Title:         row.Title,
		Description:   row.Description,
		Type:          row.Type,
		CourseID:      row.CourseID,
		InstitutionID: row.InstitutionID.String,
		DueDate:       row.DueDate,
		MaxMarks:      row.MaxMarks,
		Files:         row.Files,
		CreatorID:     row.CreatorID,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		DeletedAt:     row.DeletedAt,
	}
}

func (repo assessmentRepository) toSubmissionRow(sub assessment.Submission) submissionRow {
	return submissionRow{
		ID:            sub.ID,
		AssessmentID:  sub.AssessmentID,
		UserID:        sub.UserID,
		InstitutionID: null.NewString(sub.InstitutionID, sub.InstitutionID != ""),
		SubmittedAt:   sub.SubmittedAt,
		Files:         sub.Files,
		Marks:         sub.Marks,
		Feedback:      sub.Feedback,
		Status:        sub.Status,
		ResultID:      null.NewString(sub.ResultID, sub.ResultID != ""),
		CreatedAt:     sub.CreatedAt.UTC(),
		UpdatedAt:     sub.UpdatedAt.UTC(),
		DeletedAt:     sub.DeletedAt,
	}
}

func (repo assessmentRepository) fromSubmissionRow(row submissionRow) assessment.Submission {
	return assessment.Submission{
		ID:            row.ID,
		AssessmentID:  row.AssessmentID,
		UserID:        row.UserID,
		InstitutionID: row.InstitutionID.String,
		SubmittedAt:   row.SubmittedAt,
		Files:         row.Files,
		Marks:         row.Marks,
		Feedback:      row.Feedback,
		Status:        row.Status,
		ResultID:      row.ResultID.String,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		DeletedAt:     row.DeletedAt,
	}
}

func (repo assessmentRepository) toResultRow(res assessment.Result) resultRow {
	return resultRow(res)
}

func (repo assessmentRepository) fromResultRow(row resultRow) assessment.Result {
	return assessment.Result(row)
}

// --- assessments ---

func (repo assessmentRepository) CreateAssessment(ctx context.Context, asm assessment.Assessment) (assessment.Assessment, error) {
	asm.ID = uuid.New().String()
	row := repo.toAssessmentRow(asm)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO assessment (id, title, description, type, course_id, institution_id, due_date,
		                        max_marks, files, creator_id, created_at, updated_at)
		VALUES (:id, :title, :description, :type, :course_id, :institution_id, :due_date,
		        :max_marks, :files, :creator_id, :created_at, :updated_at)`,
		row)
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	return asm, nil
}

func (repo assessmentRepository) QueryAssessments(ctx context.Context, filter *assessment.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]assessment.Assessment, int, error) {
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
		if filter.Type != "" {
			where += " AND type = " + arg(filter.Type)
		}
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT count(*) FROM assessment "+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting assessments")
	}

	query := "SELECT * FROM assessment " + where +
		orderClause(ordering, "due_date ASC", "title", "type", "due_date", "created_at") +
		pageClause(page)
	var rows []assessmentRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying assessments")
	}

	asms := make([]assessment.Assessment, 0, len(rows))
	for _, row := range rows {
		asms = append(asms, repo.fromAssessmentRow(row))
	}
	return asms, total, nil
}

func (repo assessmentRepository) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	var row assessmentRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM assessment WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return assessment.Assessment{}, assessment.ErrNotFound
		}
		return assessment.Assessment{}, errors.Wrap(err, "finding assessment")
	}
	return repo.fromAssessmentRow(row), nil
}

func (repo assessmentRepository) UpdateAssessment(ctx context.Context, asm assessment.Assessment) (assessment.Assessment, error) {
	row := repo.toAssessmentRow(asm)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE assessment
		SET title = :title, description = :description, type = :type, due_date = :due_date,
		    max_marks = :max_marks, files = :files, updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`,
		row)
	if err != nil {
		return assessment.Assessment{}, errors.Wrap(err, "updating assessment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	return asm, nil
}

func (repo assessmentRepository) DeleteAssessmentsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.softDelete(ctx, "assessment", ids)
}

// --- submissions ---

func (repo assessmentRepository) CreateSubmission(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	sub.ID = uuid.New().String()
	row := repo.toSubmissionRow(sub)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO submission (id, assessment_id, user_id, institution_id, submitted_at, files,
		                        marks, feedback, status, result_id, created_at, updated_at)
		VALUES (:id, :assessment_id, :user_id, :institution_id, :submitted_at, :files,
		        :marks, :feedback, :status, :result_id, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isUniqueViolation(err) {
			return assessment.Submission{}, assessment.ErrAlreadySubmitted
		}
		return assessment.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo assessmentRepository) QuerySubmissions(ctx context.Context, assessmentID string) ([]assessment.Submission, error) {
	var rows []submissionRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT * FROM submission WHERE assessment_id = $1 AND deleted_at IS NULL ORDER BY created_at",
		assessmentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}

	subs := make([]assessment.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, repo.fromSubmissionRow(row))
	}
	return subs, nil
}

func (repo assessmentRepository) GetSubmission(ctx context.Context, id string) (assessment.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assessment.Submission{}, assessment.ErrSubmissionNotFound
	}
	var row submissionRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM submission WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return assessment.Submission{}, assessment.ErrSubmissionNotFound
		}
		return assessment.Submission{}, errors.Wrap(err, "finding submission")
	}
	return repo.fromSubmissionRow(row), nil
}

func (repo assessmentRepository) GetUserSubmission(ctx context.Context, assessmentID, userID string) (assessment.Submission, error) {
	var row submissionRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT * FROM submission WHERE assessment_id = $1 AND user_id = $2 AND deleted_at IS NULL",
		assessmentID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return assessment.Submission{}, assessment.ErrSubmissionNotFound
		}
		return assessment.Submission{}, errors.Wrap(err, "finding user submission")
	}
	return repo.fromSubmissionRow(row), nil
}

func (repo assessmentRepository) UpdateSubmission(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	row := repo.toSubmissionRow(sub)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE submission
		SET submitted_at = :submitted_at, files = :files, marks = :marks, feedback = :feedback,
		    status = :status, result_id = :result_id, updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`,
		row)
	if err != nil {
		return assessment.Submission{}, errors.Wrap(err, "updating submission")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return assessment.Submission{}, assessment.ErrSubmissionNotFound
	}
	return sub, nil
}

func (repo assessmentRepository) DeleteSubmissionsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.softDelete(ctx, "submission", ids)
}

// --- results ---

// UpsertResult keeps one live result per (enrollment, assessment) pair. The partial
// unique index on the pair guards concurrent upserts; a losing insert retries as an update.
func (repo assessmentRepository) UpsertResult(ctx context.Context, res assessment.Result) (assessment.Result, error) {
	existing, err := repo.getResultByEnrollment(ctx, res.EnrollmentID, res.AssessmentID)
	switch err {
	case nil:
		res.ID = existing.ID
		res.CreatedAt = existing.CreatedAt
		return repo.updateResult(ctx, res)
	case assessment.ErrResultNotFound:
		created, err := repo.insertResult(ctx, res)
		if isUniqueViolation(errors.Cause(err)) {
			if existing, err = repo.getResultByEnrollment(ctx, res.EnrollmentID, res.AssessmentID); err != nil {
				return assessment.Result{}, err
			}
			res.ID = existing.ID
			res.CreatedAt = existing.CreatedAt
			return repo.updateResult(ctx, res)
		}
		return created, err
	default:
		return assessment.Result{}, err
	}
}

func (repo assessmentRepository) getResultByEnrollment(ctx context.Context, enrollmentID, assessmentID string) (assessment.Result, error) {
	var row resultRow
	err := repo.db.GetContext(ctx, &row,
		"SELECT * FROM result WHERE enrollment_id = $1 AND assessment_id = $2 AND deleted_at IS NULL",
		enrollmentID, assessmentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return assessment.Result{}, assessment.ErrResultNotFound
		}
		return assessment.Result{}, errors.Wrap(err, "finding result")
	}
	return repo.fromResultRow(row), nil
}

func (repo assessmentRepository) insertResult(ctx context.Context, res assessment.Result) (assessment.Result, error) {
	res.ID = uuid.New().String()
	row := repo.toResultRow(res)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO result (id, enrollment_id, assessment_id, submission_id, course_id, user_id,
		                    creator_id, marks, grade, academic_year, remarks, created_at, updated_at)
		VALUES (:id, :enrollment_id, :assessment_id, :submission_id, :course_id, :user_id,
		        :creator_id, :marks, :grade, :academic_year, :remarks, :created_at, :updated_at)`,
		row)
	if err != nil {
		return assessment.Result{}, errors.Wrap(err, "inserting result")
	}
	return res, nil
}

func (repo assessmentRepository) updateResult(ctx context.Context, res assessment.Result) (assessment.Result, error) {
	row := repo.toResultRow(res)
	out, err := repo.db.NamedExecContext(ctx, `
		UPDATE result
		SET submission_id = :submission_id, marks = :marks, grade = :grade,
		    academic_year = :academic_year, remarks = :remarks, updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`,
		row)
	if err != nil {
		return assessment.Result{}, errors.Wrap(err, "updating result")
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return assessment.Result{}, assessment.ErrResultNotFound
	}
	return res, nil
}

func (repo assessmentRepository) QueryResults(ctx context.Context, filter *assessment.ResultFilter, ordering []core.DBOrdering, page *core.Pagination) ([]assessment.Result, int, error) {
	where := "WHERE deleted_at IS NULL"
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.CourseID != "" {
			where += " AND course_id = " + arg(filter.CourseID)
		}
		if filter.UserID != "" {
			where += " AND user_id = " + arg(filter.UserID)
		}
		if filter.AcademicYear != 0 {
			where += " AND academic_year = " + arg(filter.AcademicYear)
		}
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT count(*) FROM result "+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting results")
	}

	query := "SELECT * FROM result " + where +
		orderClause(ordering, "created_at DESC", "marks", "grade", "academic_year", "created_at") +
		pageClause(page)
	var rows []resultRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying results")
	}

	results := make([]assessment.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, repo.fromResultRow(row))
	}
	return results, total, nil
}

func (repo assessmentRepository) GetResult(ctx context.Context, id string) (assessment.Result, error) {
	if _, err := uuid.Parse(id); err != nil {
		return assessment.Result{}, assessment.ErrResultNotFound
	}
	var row resultRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM result WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return assessment.Result{}, assessment.ErrResultNotFound
		}
		return assessment.Result{}, errors.Wrap(err, "finding result")
	}
	return repo.fromResultRow(row), nil
}

func (repo assessmentRepository) DeleteResultsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.softDelete(ctx, "result", ids)
}

func (repo assessmentRepository) softDelete(ctx context.Context, table string, ids []string) (int, error) {
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
