package assessment

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/course"
	"github.com/campushub/backend/core/notification"
)

var (
	// errors
	ErrNotFound           = errors.New("assessment not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrResultNotFound     = errors.New("result not found")
	ErrAlreadySubmitted   = errors.New("submission has already been made for this assessment")
	errNotEnrolled        = errors.New("user is not enrolled in this course")
	errMarksOutOfRange    = errors.New("marks exceed the assessment's maximum")
)

type (
	ResultFilter struct {
		CourseID     string `json:"courseId" query:"course_id"`
		UserID       string `json:"userId" query:"user_id"`
		AcademicYear int    `json:"academicYear" query:"academic_year"`
	}

	Repository interface {
		CreateAssessment(ctx context.Context, asm Assessment) (Assessment, error)
		QueryAssessments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Assessment, int, error)
		GetAssessment(ctx context.Context, id string) (Assessment, error)
		UpdateAssessment(ctx context.Context, asm Assessment) (Assessment, error)
		DeleteAssessmentsByID(ctx context.Context, ids ...string) (int, error)

		CreateSubmission(ctx context.Context, sub Submission) (Submission, error)
		QuerySubmissions(ctx context.Context, assessmentID string) ([]Submission, error)
		GetSubmission(ctx context.Context, id string) (Submission, error)
		// GetUserSubmission returns the live submission of userID for an
		// assessment, or ErrSubmissionNotFound.
		GetUserSubmission(ctx context.Context, assessmentID, userID string) (Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission) (Submission, error)
		DeleteSubmissionsByID(ctx context.Context, ids ...string) (int, error)

		// UpsertResult creates or, keyed on enrollment and assessment,
		// updates a result.
		UpsertResult(ctx context.Context, res Result) (Result, error)
		QueryResults(ctx context.Context, filter *ResultFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Result, int, error)
		GetResult(ctx context.Context, id string) (Result, error)
		DeleteResultsByID(ctx context.Context, ids ...string) (int, error)
	}

	// Courses looks up courses and enrollments owned by the course domain.
	Courses interface {
		GetByID(ctx context.Context, id string) (course.Course, error)
		GetUserEnrollment(ctx context.Context, userID, courseID string) (course.Enrollment, error)
	}

	Notifier interface {
		Broadcast(ctx context.Context, ev notification.Event) (notification.FanOutResult, error)
	}

	Service struct {
		repo     Repository
		courses  Courses
		notifier Notifier
		conf     *core.Config
		logger   core.Logger
	}
)

func NewService(repo Repository, courses Courses, notifier Notifier, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		notifier: notifier,
		conf:     conf,
		logger:   logger,
	}
}

// Create saves a new assessment and notifies the course's students.
func (svc *Service) Create(ctx context.Context, na NewAssessment, creatorID string) (Assessment, error) {
	if _, err := svc.courses.GetByID(ctx, na.CourseID); err != nil {
		return Assessment{}, err
	}

	now := time.Now().UTC()
	asm := Assessment{
		Title:         na.Title,
		Description:   na.Description,
		Type:          na.Type,
		CourseID:      na.CourseID,
		InstitutionID: na.InstitutionID,
		DueDate:       na.DueDate.UTC(),
		MaxMarks:      na.MaxMarks,
		Files:         na.Files,
		CreatorID:     creatorID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if asm.Type == "" {
		asm.Type = TypeQuiz
	}

	asm, err := svc.repo.CreateAssessment(ctx, asm)
	if err != nil {
		return Assessment{}, err
	}

	svc.fanOut(notification.Event{
		Kind:      notification.KindAssessment,
		Title:     asm.Title,
		CreatorID: asm.CreatorID,
		Audience:  notification.CourseStudents{CourseID: asm.CourseID},
	})
	return asm, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Assessment, int, error) {
	return svc.repo.QueryAssessments(ctx, filter, ordering, page)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Assessment, error) {
	return svc.repo.GetAssessment(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAssessment) (Assessment, error) {
	asm, err := svc.repo.GetAssessment(ctx, id)
	if err != nil {
		return Assessment{}, err
	}

	if ua.Title != "" {
		asm.Title = ua.Title
	}
	if ua.Description != "" {
		asm.Description = ua.Description
	}
	if ua.DueDate != nil {
		asm.DueDate = ua.DueDate.UTC()
	}
	if ua.MaxMarks != nil {
		asm.MaxMarks = *ua.MaxMarks
	}
	if ua.Files != nil {
		asm.Files = ua.Files
	}
	asm.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateAssessment(ctx, asm)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteAssessmentsByID(ctx, ids...)
	return err
}

// Submit records a student's submission for an assessment and notifies the
// assessment's creator. Submissions after the due date are marked late.
func (svc *Service) Submit(ctx context.Context, assessmentID, userID string, ns NewSubmission) (Submission, error) {
	asm, err := svc.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return Submission{}, err
	}
	if _, err = svc.courses.GetUserEnrollment(ctx, userID, asm.CourseID); err != nil {
		if errors.Cause(err) == course.ErrEnrollmentNotFound {
			return Submission{}, core.NewValidationError(errNotEnrolled)
		}
		return Submission{}, err
	}

	now := time.Now().UTC()
	status := SubmissionSubmitted
	if now.After(asm.DueDate) {
		status = SubmissionLate
	}
	sub := Submission{
		AssessmentID:  assessmentID,
		UserID:        userID,
		InstitutionID: asm.InstitutionID,
		SubmittedAt:   null.TimeFrom(now),
		Files:         ns.Files,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	sub, err = svc.repo.CreateSubmission(ctx, sub)
	if err != nil {
		if errors.Cause(err) == ErrAlreadySubmitted {
			return Submission{}, core.NewValidationError(err)
		}
		return Submission{}, err
	}

	svc.fanOut(notification.Event{
		Kind:      notification.KindSubmission,
		Title:     asm.Title,
		CreatorID: userID,
		Audience:  notification.ExplicitUsers{UserIDs: []string{asm.CreatorID}},
	})
	return sub, nil
}

func (svc *Service) Submissions(ctx context.Context, assessmentID string) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, assessmentID)
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

// Grade scores a submission, records the result and notifies the student.
// Marks are stored as a percentage of the assessment's MaxMarks.
func (svc *Service) Grade(ctx context.Context, submissionID string, gs GradeSubmission, graderID string) (Result, error) {
	sub, err := svc.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return Result{}, err
	}
	asm, err := svc.repo.GetAssessment(ctx, sub.AssessmentID)
	if err != nil {
		return Result{}, err
	}
	if gs.Marks < 0 || gs.Marks > asm.MaxMarks {
		return Result{}, core.NewValidationError(errMarksOutOfRange,
			core.FieldError{Field: "marks", Error: errMarksOutOfRange.Error()})
	}

	enr, err := svc.courses.GetUserEnrollment(ctx, sub.UserID, asm.CourseID)
	if err != nil {
		if errors.Cause(err) == course.ErrEnrollmentNotFound {
			return Result{}, core.NewValidationError(errNotEnrolled)
		}
		return Result{}, err
	}

	percentage := float64(gs.Marks) / float64(asm.MaxMarks) * 100
	now := time.Now().UTC()
	res := Result{
		EnrollmentID: enr.ID,
		AssessmentID: asm.ID,
		SubmissionID: sub.ID,
		CourseID:     asm.CourseID,
		UserID:       sub.UserID,
		CreatorID:    graderID,
		Marks:        int(percentage),
		Grade:        CalculateGrade(percentage),
		AcademicYear: gs.AcademicYear,
		Remarks:      gs.Remarks,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	res, err = svc.repo.UpsertResult(ctx, res)
	if err != nil {
		return Result{}, err
	}

	sub.Marks = null.IntFrom(gs.Marks)
	sub.Feedback = gs.Feedback
	sub.Status = SubmissionGraded
	sub.ResultID = res.ID
	sub.UpdatedAt = now
	if _, err = svc.repo.UpdateSubmission(ctx, sub); err != nil {
		return Result{}, errors.Wrap(err, "updating submission")
	}

	svc.fanOut(notification.Event{
		Kind:      notification.KindResult,
		Title:     asm.Title,
		CreatorID: graderID,
		Audience:  notification.ExplicitUsers{UserIDs: []string{sub.UserID}},
	})
	return res, nil
}

func (svc *Service) QueryResults(ctx context.Context, filter *ResultFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Result, int, error) {
	return svc.repo.QueryResults(ctx, filter, ordering, page)
}

func (svc *Service) GetResult(ctx context.Context, id string) (Result, error) {
	return svc.repo.GetResult(ctx, id)
}

func (svc *Service) fanOut(ev notification.Event) notification.FanOutResult {
	ctx, cancel := context.WithTimeout(context.Background(), svc.conf.Notify.Timeout)
	defer cancel()

	res, err := svc.notifier.Broadcast(ctx, ev)
	if err != nil {
		svc.logger.Error("assessment fan-out failed", err)
	}
	return res
}
