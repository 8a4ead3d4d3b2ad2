package assessment

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
)

// assessment types
const (
	TypeQuiz       = "quiz"
	TypeAssignment = "assignment"
	TypeExam       = "exam"
)

// submission statuses
const (
	SubmissionDraft     = "draft"
	SubmissionSubmitted = "submitted"
	SubmissionLate      = "late"
	SubmissionGraded    = "graded"
)

var (
	AllTypes              = []string{TypeQuiz, TypeAssignment, TypeExam}
	AllSubmissionStatuses = []string{SubmissionDraft, SubmissionSubmitted, SubmissionLate, SubmissionGraded}
)

type (
	Assessment struct {
		ID            string    `json:"id"`
		Title         string    `json:"title"`
		Description   string    `json:"description,omitempty"`
		Type          string    `json:"type"`
		CourseID      string    `json:"courseId"`
		InstitutionID string    `json:"institutionId"`
		DueDate       time.Time `json:"dueDate"`
		MaxMarks      int       `json:"maxMarks"`
		Files         []string  `json:"files,omitempty"`
		CreatorID     string    `json:"creatorId"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
		DeletedAt     null.Time `json:"-"`
	}

	Submission struct {
		ID            string    `json:"id"`
		AssessmentID  string    `json:"assessmentId"`
		UserID        string    `json:"userId"`
		InstitutionID string    `json:"institutionId"`
		SubmittedAt   null.Time `json:"submittedAt,omitempty"`
		Files         []string  `json:"files,omitempty"`
		Marks         null.Int  `json:"marks,omitempty"`
		Feedback      string    `json:"feedback,omitempty"`
		Status        string    `json:"status"`
		ResultID      string    `json:"resultId,omitempty"`
		CreatedAt     time.Time `json:"createdAt"`
		UpdatedAt     time.Time `json:"updatedAt"`
		DeletedAt     null.Time `json:"-"`
	}

	Result struct {
		ID           string    `json:"id"`
		EnrollmentID string    `json:"enrollmentId"`
		AssessmentID string    `json:"assessmentId"`
		SubmissionID string    `json:"submissionId"`
		CourseID     string    `json:"courseId"`
		UserID       string    `json:"userId"`
		CreatorID    string    `json:"creatorId"`
		Marks        int       `json:"marks"` // percentage of MaxMarks
		Grade        string    `json:"grade"`
		AcademicYear int       `json:"academicYear"`
		Remarks      string    `json:"remarks,omitempty"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
		DeletedAt    null.Time `json:"-"`
	}

	NewAssessment struct {
		Title         string    `json:"title" validate:"required"`
		Description   string    `json:"description"`
		Type          string    `json:"type" validate:"assessmenttype"`
		CourseID      string    `json:"courseId" validate:"required"`
		InstitutionID string    `json:"institutionId" validate:"required"`
		DueDate       time.Time `json:"dueDate" validate:"required"`
		MaxMarks      int       `json:"maxMarks" validate:"min=1,max=100"`
		Files         []string  `json:"files"`
	}

	UpdateAssessment struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		DueDate     *time.Time `json:"dueDate"`
		MaxMarks    *int       `json:"maxMarks" validate:"omitempty,min=1,max=100"`
		Files       []string   `json:"files"`
	}

	NewSubmission struct {
		Files []string `json:"files"`
	}

	// GradeSubmission carries a grader's marks for one submission.
	GradeSubmission struct {
		Marks        int    `json:"marks" validate:"min=0"`
		Feedback     string `json:"feedback"`
		AcademicYear int    `json:"academicYear" validate:"required"`
		Remarks      string `json:"remarks"`
	}

	QueryFilter struct {
		Search   string `json:"search" query:"search"` // matches Title
		CourseID string `json:"courseId" query:"course_id"`
		Type     string `json:"type" query:"type"`
	}
)

func (a *Assessment) IsDeleted() bool {
	return a.DeletedAt.Valid
}

func (s *Submission) IsDeleted() bool {
	return s.DeletedAt.Valid
}

func (na *NewAssessment) Validate(ctx context.Context, validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Type = core.CleanString(na.Type, true /* lower */)
	return validate.StructCtx(ctx, na)
}

func (ua *UpdateAssessment) Validate(ctx context.Context, validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	return validate.StructCtx(ctx, ua)
}

func (gs *GradeSubmission) Validate(ctx context.Context, validate *validator.Validate) error {
	gs.Feedback = core.CleanString(gs.Feedback)
	gs.Remarks = core.CleanString(gs.Remarks)
	return validate.StructCtx(ctx, gs)
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Type = core.CleanString(qf.Type, true /* lower */)
}
