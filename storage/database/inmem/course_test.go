package inmemdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/backend/core/course"
)

// Fan-out recipients are every non-soft-deleted enrollee; the enrollment
// status never narrows the set.
func TestActiveEnrollmentUserIDs(t *testing.T) {
	ctx := context.Background()
	db, err := Open()
	require.NoError(t, err)
	repo := NewCourseRepository(db)

	for _, enr := range []course.Enrollment{
		{UserID: "stud1", CourseID: "crs1", Status: course.EnrollmentActive},
		{UserID: "stud2", CourseID: "crs1", Status: course.EnrollmentCompleted},
		{UserID: "stud3", CourseID: "crs1", Status: course.EnrollmentDropped},
		{UserID: "stud4", CourseID: "crs2", Status: course.EnrollmentActive},
	} {
		_, err = repo.CreateEnrollment(ctx, enr)
		require.NoError(t, err)
	}
	gone, err := repo.CreateEnrollment(ctx, course.Enrollment{UserID: "stud5", CourseID: "crs1", Status: course.EnrollmentActive})
	require.NoError(t, err)
	_, err = repo.DeleteEnrollmentsByID(ctx, gone.ID)
	require.NoError(t, err)

	ids, err := repo.ActiveEnrollmentUserIDs(ctx, "crs1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"stud1", "stud2", "stud3"}, ids)
}
