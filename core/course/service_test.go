package course

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/backend/core"
)

type fakeCourseRepo struct {
	Repository

	courses     map[string]Course
	materials   []Material
	enrollments []Enrollment
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: make(map[string]Course)}
}

func (r *fakeCourseRepo) CreateCourse(_ context.Context, crs Course) (Course, error) {
	crs.ID = "crs" + string(rune('1'+len(r.courses)))
	r.courses[crs.ID] = crs
	return crs, nil
}

func (r *fakeCourseRepo) GetCourse(_ context.Context, id string) (Course, error) {
	crs, ok := r.courses[id]
	if !ok {
		return Course{}, ErrNotFound
	}
	return crs, nil
}

func (r *fakeCourseRepo) CreateMaterial(_ context.Context, mat Material) (Material, error) {
	for _, m := range r.materials {
		if m.CourseID == mat.CourseID && (m.Name == mat.Name || m.Order == mat.Order) {
			return Material{}, ErrMaterialExists
		}
	}
	mat.ID = "mat" + string(rune('1'+len(r.materials)))
	r.materials = append(r.materials, mat)
	return mat, nil
}

func (r *fakeCourseRepo) CreateEnrollment(_ context.Context, enr Enrollment) (Enrollment, error) {
	for _, e := range r.enrollments {
		if e.UserID == enr.UserID && e.CourseID == enr.CourseID {
			return Enrollment{}, ErrAlreadyEnrolled
		}
	}
	enr.ID = "enr" + string(rune('1'+len(r.enrollments)))
	r.enrollments = append(r.enrollments, enr)
	return enr, nil
}

func (r *fakeCourseRepo) GetEnrollment(_ context.Context, id string) (Enrollment, error) {
	for _, e := range r.enrollments {
		if e.ID == id {
			return e, nil
		}
	}
	return Enrollment{}, ErrEnrollmentNotFound
}

func (r *fakeCourseRepo) UpdateEnrollment(_ context.Context, enr Enrollment) (Enrollment, error) {
	for i, e := range r.enrollments {
		if e.ID == enr.ID {
			r.enrollments[i] = enr
			return enr, nil
		}
	}
	return Enrollment{}, ErrEnrollmentNotFound
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCourseRepo()
	svc := NewService(repo)

	crs, err := svc.Create(ctx, NewCourse{Title: "Algorithms"}, "fac1")
	require.NoError(t, err)

	enr, err := svc.Enroll(ctx, crs.ID, NewEnrollment{UserID: "stud1"})
	require.NoError(t, err)
	assert.Equal(t, EnrollmentActive, enr.Status)
	assert.Equal(t, crs.ID, enr.CourseID)

	t.Run("unknown course", func(t *testing.T) {
		_, err := svc.Enroll(ctx, "nope", NewEnrollment{UserID: "stud1"})
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("double enrollment", func(t *testing.T) {
		_, err := svc.Enroll(ctx, crs.ID, NewEnrollment{UserID: "stud1"})
		require.Error(t, err)
		vErr, ok := err.(*core.ValidationError)
		require.True(t, ok, "want *core.ValidationError, got %T", err)
		assert.Contains(t, vErr.Error(), "already enrolled")
	})
}

func TestUpdateEnrollmentStatus(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCourseRepo()
	svc := NewService(repo)

	crs, err := svc.Create(ctx, NewCourse{Title: "Networks"}, "fac1")
	require.NoError(t, err)
	enr, err := svc.Enroll(ctx, crs.ID, NewEnrollment{UserID: "stud1"})
	require.NoError(t, err)

	updated, err := svc.UpdateEnrollmentStatus(ctx, enr.ID, EnrollmentCompleted)
	require.NoError(t, err)
	assert.Equal(t, EnrollmentCompleted, updated.Status)
	assert.True(t, updated.UpdatedAt.After(enr.UpdatedAt) || updated.UpdatedAt.Equal(enr.UpdatedAt))

	_, err = svc.UpdateEnrollmentStatus(ctx, "nope", EnrollmentDropped)
	assert.Equal(t, ErrEnrollmentNotFound, err)
}

func TestAddMaterial(t *testing.T) {
	ctx := context.Background()
	repo := newFakeCourseRepo()
	svc := NewService(repo)

	crs, err := svc.Create(ctx, NewCourse{Title: "Databases"}, "fac1")
	require.NoError(t, err)

	mat, err := svc.AddMaterial(ctx, crs.ID, NewMaterial{Name: "Week 1", Order: 1}, "fac1")
	require.NoError(t, err)
	assert.Equal(t, MaterialText, mat.Type, "type defaults to text")
	assert.Equal(t, "fac1", mat.CreatorID)

	t.Run("duplicate name", func(t *testing.T) {
		_, err := svc.AddMaterial(ctx, crs.ID, NewMaterial{Name: "Week 1", Order: 2}, "fac1")
		require.Error(t, err)
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok, "want *core.ValidationError, got %T", err)
	})

	t.Run("duplicate order", func(t *testing.T) {
		_, err := svc.AddMaterial(ctx, crs.ID, NewMaterial{Name: "Week 2", Order: 1}, "fac1")
		require.Error(t, err)
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok, "want *core.ValidationError, got %T", err)
	})

	t.Run("unknown course", func(t *testing.T) {
		_, err := svc.AddMaterial(ctx, "nope", NewMaterial{Name: "Week 1"}, "fac1")
		assert.Equal(t, ErrNotFound, err)
	})
}
