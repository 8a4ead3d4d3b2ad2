package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/course"
)

type courseRepository struct {
	courses     *courseTable
	materials   *materialTable
	enrollments *enrollmentTable
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{
		courses:     db.course,
		materials:   db.material,
		enrollments: db.enrollment,
	}
}

func (repo *courseRepository) liveCourses() []course.Course {
	courses := make([]course.Course, 0, len(repo.courses.table))
	for _, crs := range repo.courses.table {
		if crs.DeletedAt.Valid {
			continue
		}
		courses = append(courses, *crs)
	}
	sort.SliceStable(courses, func(i, j int) bool { return courses[i].CreatedAt.Before(courses[j].CreatedAt) })
	return courses
}

func (repo *courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	crs.ID = newPK()
	repo.courses.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]course.Course, int, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	var courses []course.Course
	for _, crs := range repo.liveCourses() {
		if filter != nil {
			if filter.Search != "" && !containsFold(crs.Title, filter.Search) {
				continue
			}
			if filter.CreatorID != "" && crs.CreatorID != filter.CreatorID {
				continue
			}
		}
		courses = append(courses, crs)
	}

	total := len(courses)
	lo, hi := paginate(total, page)
	return courses[lo:hi], total, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, id string) (course.Course, error) {
	repo.courses.RLock()
	defer repo.courses.RUnlock()

	if crs, ok := repo.courses.table[id]; ok && !crs.DeletedAt.Valid {
		return *crs, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	orig, ok := repo.courses.table[crs.ID]
	if !ok || orig.DeletedAt.Valid {
		return course.Course{}, course.ErrNotFound
	}
	crs.CreatedAt = orig.CreatedAt
	repo.courses.table[crs.ID] = &crs
	return crs, nil
}

func (repo *courseRepository) DeleteCoursesByID(ctx context.Context, ids ...string) (int, error) {
	repo.courses.Lock()
	defer repo.courses.Unlock()

	now := time.Now().UTC()
	var cnt int
	for _, id := range ids {
		if crs, ok := repo.courses.table[id]; ok && !crs.DeletedAt.Valid {
			crs.DeletedAt.SetValid(now)
			cnt++
		}
	}
	return cnt, nil
}

// --- materials ---

func (repo *courseRepository) CreateMaterial(ctx context.Context, mat course.Material) (course.Material, error) {
	repo.materials.Lock()
	defer repo.materials.Unlock()

	for _, m := range repo.materials.table {
		if m.DeletedAt.Valid || m.CourseID != mat.CourseID {
			continue
		}
		if m.Name == mat.Name || m.Order == mat.Order {
			return course.Material{}, course.ErrMaterialExists
		}
	}

	mat.ID = newPK()
	repo.materials.table[mat.ID] = &mat
	return mat, nil
}

func (repo *courseRepository) QueryMaterials(ctx context.Context, courseID string, publishedOnly bool) ([]course.Material, error) {
	repo.materials.RLock()
	defer repo.materials.RUnlock()

	var mats []course.Material
	for _, mat := range repo.materials.table {
		if mat.DeletedAt.Valid || mat.CourseID != courseID {
			continue
		}
		if publishedOnly && !mat.Published {
			continue
		}
		mats = append(mats, *mat)
	}
	sort.SliceStable(mats, func(i, j int) bool { return mats[i].Order < mats[j].Order })
	return mats, nil
}

func (repo *courseRepository) GetMaterial(ctx context.Context, id string) (course.Material, error) {
	repo.materials.RLock()
	defer repo.materials.RUnlock()

	if mat, ok := repo.materials.table[id]; ok && !mat.DeletedAt.Valid {
		return *mat, nil
	}
	return course.Material{}, course.ErrMaterialNotFound
}

func (repo *courseRepository) UpdateMaterial(ctx context.Context, mat course.Material) (course.Material, error) {
	repo.materials.Lock()
	defer repo.materials.Unlock()

	orig, ok := repo.materials.table[mat.ID]
	if !ok || orig.DeletedAt.Valid {
		return course.Material{}, course.ErrMaterialNotFound
	}
	for _, m := range repo.materials.table {
		if m.ID == mat.ID || m.DeletedAt.Valid || m.CourseID != mat.CourseID {
			continue
		}
		if m.Name == mat.Name || m.Order == mat.Order {
			return course.Material{}, course.ErrMaterialExists
		}
	}
	mat.CreatedAt = orig.CreatedAt
	repo.materials.table[mat.ID] = &mat
	return mat, nil
}

func (repo *courseRepository) DeleteMaterialsByID(ctx context.Context, ids ...string) (int, error) {
	repo.materials.Lock()
	defer repo.materials.Unlock()

	now := time.Now().UTC()
	var cnt int
	for _, id := range ids {
		if mat, ok := repo.materials.table[id]; ok && !mat.DeletedAt.Valid {
			mat.DeletedAt.SetValid(now)
			cnt++
		}
	}
	return cnt, nil
}

// --- enrollments ---

func (repo *courseRepository) CreateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()

	for _, e := range repo.enrollments.table {
		if !e.DeletedAt.Valid && e.UserID == enr.UserID && e.CourseID == enr.CourseID {
			return course.Enrollment{}, course.ErrAlreadyEnrolled
		}
	}

	enr.ID = newPK()
	repo.enrollments.table[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) queryEnrollments(match func(course.Enrollment) bool) []course.Enrollment {
	var enrs []course.Enrollment
	for _, enr := range repo.enrollments.table {
		if enr.DeletedAt.Valid || !match(*enr) {
			continue
		}
		enrs = append(enrs, *enr)
	}
	sort.SliceStable(enrs, func(i, j int) bool { return enrs[i].CreatedAt.Before(enrs[j].CreatedAt) })
	return enrs
}

func (repo *courseRepository) QueryCourseEnrollments(ctx context.Context, courseID string) ([]course.Enrollment, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()
	return repo.queryEnrollments(func(e course.Enrollment) bool { return e.CourseID == courseID }), nil
}

func (repo *courseRepository) QueryUserEnrollments(ctx context.Context, userID string) ([]course.Enrollment, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()
	return repo.queryEnrollments(func(e course.Enrollment) bool { return e.UserID == userID }), nil
}

func (repo *courseRepository) GetEnrollment(ctx context.Context, id string) (course.Enrollment, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()

	if enr, ok := repo.enrollments.table[id]; ok && !enr.DeletedAt.Valid {
		return *enr, nil
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) GetUserEnrollment(ctx context.Context, userID, courseID string) (course.Enrollment, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()

	for _, enr := range repo.enrollments.table {
		if !enr.DeletedAt.Valid && enr.UserID == userID && enr.CourseID == courseID {
			return *enr, nil
		}
	}
	return course.Enrollment{}, course.ErrEnrollmentNotFound
}

func (repo *courseRepository) UpdateEnrollment(ctx context.Context, enr course.Enrollment) (course.Enrollment, error) {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()

	orig, ok := repo.enrollments.table[enr.ID]
	if !ok || orig.DeletedAt.Valid {
		return course.Enrollment{}, course.ErrEnrollmentNotFound
	}
	enr.CreatedAt = orig.CreatedAt
	repo.enrollments.table[enr.ID] = &enr
	return enr, nil
}

func (repo *courseRepository) DeleteEnrollmentsByID(ctx context.Context, ids ...string) (int, error) {
	repo.enrollments.Lock()
	defer repo.enrollments.Unlock()

	now := time.Now().UTC()
	var cnt int
	for _, id := range ids {
		if enr, ok := repo.enrollments.table[id]; ok && !enr.DeletedAt.Valid {
			enr.DeletedAt.SetValid(now)
			cnt++
		}
	}
	return cnt, nil
}

// ActiveEnrollmentUserIDs satisfies notification.EnrollmentDirectory.
// Any live (non-soft-deleted) enrollment counts, whatever its status.
func (repo *courseRepository) ActiveEnrollmentUserIDs(ctx context.Context, courseID string) ([]string, error) {
	repo.enrollments.RLock()
	defer repo.enrollments.RUnlock()

	enrs := repo.queryEnrollments(func(e course.Enrollment) bool {
		return e.CourseID == courseID
	})
	ids := make([]string, 0, len(enrs))
	for _, enr := range enrs {
		ids = append(ids, enr.UserID)
	}
	return ids, nil
}
