package course

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/campushub/backend/core"
)

var (
	// errors
	ErrNotFound           = errors.New("course not found")
	ErrMaterialNotFound   = errors.New("material not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrAlreadyEnrolled    = errors.New("user is already enrolled in this course")
	ErrMaterialExists     = errors.New("a material with this name or order already exists in this course")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Course, int, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCoursesByID(ctx context.Context, ids ...string) (int, error)

		// CreateMaterial returns ErrMaterialExists when a live material in the
		// same course already has the given name or order.
		CreateMaterial(ctx context.Context, mat Material) (Material, error)
		QueryMaterials(ctx context.Context, courseID string, publishedOnly bool) ([]Material, error)
		GetMaterial(ctx context.Context, id string) (Material, error)
		UpdateMaterial(ctx context.Context, mat Material) (Material, error)
		DeleteMaterialsByID(ctx context.Context, ids ...string) (int, error)

		// CreateEnrollment returns ErrAlreadyEnrolled when a live enrollment
		// for the same user and course exists.
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		QueryCourseEnrollments(ctx context.Context, courseID string) ([]Enrollment, error)
		QueryUserEnrollments(ctx context.Context, userID string) ([]Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		// GetUserEnrollment returns the live enrollment of userID in courseID.
		GetUserEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		DeleteEnrollmentsByID(ctx context.Context, ids ...string) (int, error)

		// ActiveEnrollmentUserIDs returns the user IDs of all live, active
		// enrollments in the given course.
		ActiveEnrollmentUserIDs(ctx context.Context, courseID string) ([]string, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse, creatorID string) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:        nc.Title,
		Content:      nc.Content,
		PriceInPaise: nc.PriceInPaise,
		CreatorID:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Course, int, error) {
	return svc.repo.QueryCourses(ctx, filter, ordering, page)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourse(ctx, id)
	if err != nil {
		return Course{}, err
	}

	if uc.Title != "" {
		crs.Title = uc.Title
	}
	if uc.Content != "" {
		crs.Content = uc.Content
	}
	if uc.PriceInPaise != nil {
		crs.PriceInPaise = *uc.PriceInPaise
	}
	crs.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCoursesByID(ctx, ids...)
	return err
}

func (svc *Service) AddMaterial(ctx context.Context, courseID string, nm NewMaterial, creatorID string) (Material, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Material{}, err
	}

	now := time.Now().UTC()
	mat := Material{
		CourseID:    courseID,
		Name:        nm.Name,
		Description: nm.Description,
		Type:        nm.Type,
		Content:     nm.Content,
		FileURL:     nm.FileURL,
		FileType:    nm.FileType,
		FileSize:    nm.FileSize,
		Order:       nm.Order,
		Duration:    nm.Duration,
		IsPreview:   nm.IsPreview,
		Published:   nm.Published,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if mat.Type == "" {
		mat.Type = MaterialText
	}

	mat, err := svc.repo.CreateMaterial(ctx, mat)
	if err != nil {
		if errors.Cause(err) == ErrMaterialExists {
			return Material{}, core.NewValidationError(err)
		}
		return Material{}, err
	}
	return mat, nil
}

// Materials lists a course's live materials. Students only see published ones.
func (svc *Service) Materials(ctx context.Context, courseID string, publishedOnly bool) ([]Material, error) {
	return svc.repo.QueryMaterials(ctx, courseID, publishedOnly)
}

func (svc *Service) GetMaterial(ctx context.Context, id string) (Material, error) {
	return svc.repo.GetMaterial(ctx, id)
}

func (svc *Service) UpdateMaterial(ctx context.Context, id string, um UpdateMaterial) (Material, error) {
	mat, err := svc.repo.GetMaterial(ctx, id)
	if err != nil {
		return Material{}, err
	}

	if um.Name != "" {
		mat.Name = um.Name
	}
	if um.Description != "" {
		mat.Description = um.Description
	}
	if um.Content != "" {
		mat.Content = um.Content
	}
	if um.Order != nil {
		mat.Order = *um.Order
	}
	if um.IsPreview != nil {
		mat.IsPreview = *um.IsPreview
	}
	if um.Published != nil {
		mat.Published = *um.Published
	}
	mat.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateMaterial(ctx, mat)
}

func (svc *Service) DeleteMaterials(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteMaterialsByID(ctx, ids...)
	return err
}

func (svc *Service) Enroll(ctx context.Context, courseID string, ne NewEnrollment) (Enrollment, error) {
	if _, err := svc.repo.GetCourse(ctx, courseID); err != nil {
		return Enrollment{}, err
	}

	now := time.Now().UTC()
	enr := Enrollment{
		UserID:    ne.UserID,
		CourseID:  courseID,
		Role:      ne.Role,
		Status:    EnrollmentActive,
		Remarks:   ne.Remarks,
		CreatedAt: now,
		UpdatedAt: now,
	}

	enr, err := svc.repo.CreateEnrollment(ctx, enr)
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return Enrollment{}, core.NewValidationError(err)
		}
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *Service) CourseEnrollments(ctx context.Context, courseID string) ([]Enrollment, error) {
	return svc.repo.QueryCourseEnrollments(ctx, courseID)
}

func (svc *Service) UserEnrollments(ctx context.Context, userID string) ([]Enrollment, error) {
	return svc.repo.QueryUserEnrollments(ctx, userID)
}

func (svc *Service) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollment(ctx, id)
}

func (svc *Service) GetUserEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error) {
	return svc.repo.GetUserEnrollment(ctx, userID, courseID)
}

func (svc *Service) UpdateEnrollmentStatus(ctx context.Context, id, status string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	enr.Status = status
	enr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateEnrollment(ctx, enr)
}

func (svc *Service) Unenroll(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteEnrollmentsByID(ctx, ids...)
	return err
}

// ActiveEnrollmentUserIDs exposes enrollment lookups to the notification fan-out.
func (svc *Service) ActiveEnrollmentUserIDs(ctx context.Context, courseID string) ([]string, error) {
	return svc.repo.ActiveEnrollmentUserIDs(ctx, courseID)
}
