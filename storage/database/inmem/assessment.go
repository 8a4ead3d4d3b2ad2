package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/assessment"
)

type assessmentRepository struct {
	assessments *assessmentTable
	submissions *submissionTable
	results     *resultTable
}

var _ assessment.Repository = (*assessmentRepository)(nil)

func NewAssessmentRepository(db *DB) *assessmentRepository {
	return &assessmentRepository{
		assessments: db.assessment,
		submissions: db.submission,
		results:     db.result,
	}
}

func (repo *assessmentRepository) liveAssessments() []assessment.Assessment {
	asms := make([]assessment.Assessment, 0, len(repo.assessments.table))
	for _, asm := range repo.assessments.table {
		if asm.DeletedAt.Valid {
			continue
		}
		asms = append(asms, *asm)
	}
	sort.SliceStable(asms, func(i, j int) bool { return asms[i].DueDate.Before(asms[j].DueDate) })
	return asms
}

func (repo *assessmentRepository) CreateAssessment(ctx context.Context, asm assessment.Assessment) (assessment.Assessment, error) {
	repo.assessments.Lock()
	defer repo.assessments.Unlock()

	asm.ID = newPK()
	repo.assessments.table[asm.ID] = &asm
	return asm, nil
}

func (repo *assessmentRepository) QueryAssessments(ctx context.Context, filter *assessment.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]assessment.Assessment, int, error) {
	repo.assessments.RLock()
	defer repo.assessments.RUnlock()

	var asms []assessment.Assessment
	for _, asm := range repo.liveAssessments() {
		if filter != nil {
			if filter.Search != "" && !containsFold(asm.Title, filter.Search) {
				continue
			}
			if filter.CourseID != "" && asm.CourseID != filter.CourseID {
				continue
			}
			if filter.Type != "" && asm.Type != filter.Type {
				continue
			}
		}
		asms = append(asms, asm)
	}

	total := len(asms)
	lo, hi := paginate(total, page)
	return asms[lo:hi], total, nil
}

func (repo *assessmentRepository) GetAssessment(ctx context.Context, id string) (assessment.Assessment, error) {
	repo.assessments.RLock()
	defer repo.assessments.RUnlock()

	if asm, ok := repo.assessments.table[id]; ok && !asm.DeletedAt.Valid {
		return *asm, nil
	}
	return assessment.Assessment{}, assessment.ErrNotFound
}

func (repo *assessmentRepository) UpdateAssessment(ctx context.Context, asm assessment.Assessment) (assessment.Assessment, error) {
	repo.assessments.Lock()
	defer repo.assessments.Unlock()

	orig, ok := repo.assessments.table[asm.ID]
	if !ok || orig.DeletedAt.Valid {
		return assessment.Assessment{}, assessment.ErrNotFound
	}
	asm.CreatedAt = orig.CreatedAt
	repo.assessments.table[asm.ID] = &asm
	return asm, nil
}

func (repo *assessmentRepository) DeleteAssessmentsByID(ctx context.Context, ids ...string) (int, error) {
	repo.assessments.Lock()
	defer repo.assessments.Unlock()

	now := time.Now().UTC()
	var cnt int
	for _, id := range ids {
		if asm, ok := repo.assessments.table[id]; ok && !asm.DeletedAt.Valid {
			asm.DeletedAt.SetValid(now)
			cnt++
		}
	}
	return cnt, nil
}

// --- submissions ---

func (repo *assessmentRepository) CreateSubmission(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	repo.submissions.Lock()
	defer repo.submissions.Unlock()

	for _, s := range repo.submissions.table {
		if !s.DeletedAt.Valid && s.AssessmentID == sub.AssessmentID && s.UserID == sub.UserID {
			return assessment.Submission{}, assessment.ErrAlreadySubmitted
		}
	}

	sub.ID = newPK()
	repo.submissions.table[sub.ID] = &sub
	return sub, nil
}

func (repo *assessmentRepository) QuerySubmissions(ctx context.Context, assessmentID string) ([]assessment.Submission, error) {
	repo.submissions.RLock()
	defer repo.submissions.RUnlock()

	var subs []assessment.Submission
	for _, sub := range repo.submissions.table {
		if sub.DeletedAt.Valid || sub.AssessmentID != assessmentID {
			continue
		}
		subs = append(subs, *sub)
	}
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].CreatedAt.Before(subs[j].CreatedAt) })
	return subs, nil
}

func (repo *assessmentRepository) GetSubmission(ctx context.Context, id string) (assessment.Submission, error) {
	repo.submissions.RLock()
	defer repo.submissions.RUnlock()

	if sub, ok := repo.submissions.table[id]; ok && !sub.DeletedAt.Valid {
		return *sub, nil
	}
	return assessment.Submission{}, assessment.ErrSubmissionNotFound
}

func (repo *assessmentRepository) GetUserSubmission(ctx context.Context, assessmentID, userID string) (assessment.Submission, error) {
	repo.submissions.RLock()
	defer repo.submissions.RUnlock()

	for _, sub := range repo.submissions.table {
		if !sub.DeletedAt.Valid && sub.AssessmentID == assessmentID && sub.UserID == userID {
			return *sub, nil
		}
	}
	return assessment.Submission{}, assessment.ErrSubmissionNotFound
}

func (repo *assessmentRepository) UpdateSubmission(ctx context.Context, sub assessment.Submission) (assessment.Submission, error) {
	repo.submissions.Lock()
	defer repo.submissions.Unlock()

	orig, ok := repo.submissions.table[sub.ID]
	if !ok || orig.DeletedAt.Valid {
		return assessment.Submission{}, assessment.ErrSubmissionNotFound
	}
	sub.CreatedAt = orig.CreatedAt
	repo.submissions.table[sub.ID] = &sub
	return sub, nil
}

func (repo *assessmentRepository) DeleteSubmissionsByID(ctx context.Context, ids ...string) (int, error) {
	repo.submissions.Lock()
	defer repo.submissions.Unlock()

	now := time.Now().UTC()
	var cnt int
	for _, id := range ids {
		if sub, ok := repo.submissions.table[id]; ok && !sub.DeletedAt.Valid {
			sub.DeletedAt.SetValid(now)
			cnt++
		}
	}
	return cnt, nil
}

// --- results ---

func (repo *assessmentRepository) UpsertResult(ctx context.Context, res assessment.Result) (assessment.Result, error) {
	repo.results.Lock()
	defer repo.results.Unlock()

	for _, r := range repo.results.table {
		if !r.DeletedAt.Valid && r.EnrollmentID == res.EnrollmentID && r.AssessmentID == res.AssessmentID {
			res.ID = r.ID
			res.CreatedAt = r.CreatedAt
			repo.results.table[res.ID] = &res
			return res, nil
		}
	}

	res.ID = newPK()
	repo.results.table[res.ID] = &res
	return res, nil
}

func (repo *assessmentRepository) QueryResults(ctx context.Context, filter *assessment.ResultFilter, ordering []core.DBOrdering, page *core.Pagination) ([]assessment.Result, int, error) {
	repo.results.RLock()
	defer repo.results.RUnlock()

	var results []assessment.Result
	for _, res := range repo.results.table {
		if res.DeletedAt.Valid {
			continue
		}
		if filter != nil {
			if filter.CourseID != "" && res.CourseID != filter.CourseID {
				continue
			}
			if filter.UserID != "" && res.UserID != filter.UserID {
				continue
			}
			if filter.AcademicYear != 0 && res.AcademicYear != filter.AcademicYear {
				continue
			}
		}
		results = append(results, *res)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].CreatedAt.Before(results[j].CreatedAt) })

	total := len(results)
	lo, hi := paginate(total, page)
	return results[lo:hi], total, nil
}

func (repo *assessmentRepository) GetResult(ctx context.Context, id string) (assessment.Result, error) {
	repo.results.RLock()
	defer repo.results.RUnlock()

	if res, ok := repo.results.table[id]; ok && !res.DeletedAt.Valid {
		return *res, nil
	}
	return assessment.Result{}, assessment.ErrResultNotFound
}

func (repo *assessmentRepository) DeleteResultsByID(ctx context.Context, ids ...string) (int, error) {
	repo.results.Lock()
	defer repo.results.Unlock()

	now := time.Now().UTC()
	var cnt int
	for _, id := range ids {
		if res, ok := repo.results.table[id]; ok && !res.DeletedAt.Valid {
			res.DeletedAt.SetValid(now)
			cnt++
		}
	}
	return cnt, nil
}
