package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/user"
)

type fakeRepo struct {
	Repository

	created     []Notification
	batchSizes  []int
	failBatch   func(batchIdx int, batch []Notification) error
	failRecords func(batch []Notification) int // records to drop from a batch
}

func (r *fakeRepo) CreateNotifications(_ context.Context, notifs []Notification) (int, error) {
	idx := len(r.batchSizes)
	r.batchSizes = append(r.batchSizes, len(notifs))

	if r.failBatch != nil {
		if err := r.failBatch(idx, notifs); err != nil {
			return 0, err
		}
	}

	dropped := 0
	if r.failRecords != nil {
		dropped = r.failRecords(notifs)
	}
	kept := notifs[:len(notifs)-dropped]
	r.created = append(r.created, kept...)
	if dropped > 0 {
		return len(kept), errors.Errorf("%d records rejected", dropped)
	}
	return len(kept), nil
}

type fakeUserDir struct {
	calls int
	ids   map[string][]string // role ("" for all) -> user IDs
}

func (d *fakeUserDir) ActiveUserIDs(_ context.Context, roles ...string) ([]string, error) {
	d.calls++
	if len(roles) == 0 {
		return d.ids[""], nil
	}
	var out []string
	for _, role := range roles {
		out = append(out, d.ids[role]...)
	}
	return out, nil
}

type fakeEnrollmentDir struct {
	calls int
	ids   map[string][]string // course ID -> user IDs
}

func (d *fakeEnrollmentDir) ActiveEnrollmentUserIDs(_ context.Context, courseID string) ([]string, error) {
	d.calls++
	return d.ids[courseID], nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestService(repo *fakeRepo, users *fakeUserDir, enrs *fakeEnrollmentDir) *Service {
	if repo == nil {
		repo = &fakeRepo{}
	}
	if users == nil {
		users = &fakeUserDir{}
	}
	if enrs == nil {
		enrs = &fakeEnrollmentDir{}
	}
	return NewService(repo, users, enrs, nopLogger{})
}

func TestResolveRecipients(t *testing.T) {
	ctx := context.Background()
	users := &fakeUserDir{ids: map[string][]string{
		"":               {"u1", "u2", "u3", "f1"},
		user.RoleFaculty: {"f1"},
	}}
	enrs := &fakeEnrollmentDir{ids: map[string][]string{
		"crs1": {"u1", "u2", "u2", "u3"}, // u2 enrolled twice
	}}
	svc := newTestService(nil, users, enrs)

	tests := []struct {
		name    string
		event   Event
		want    []string
		wantErr bool
	}{
		{
			name:  "course students deduplicates",
			event: Event{Kind: KindAnnouncement, CreatorID: "f1", Audience: CourseStudents{CourseID: "crs1"}},
			want:  []string{"u1", "u2", "u3"},
		},
		{
			name:    "course students requires course id",
			event:   Event{Kind: KindAnnouncement, CreatorID: "f1", Audience: CourseStudents{}},
			wantErr: true,
		},
		{
			name:  "all users",
			event: Event{Kind: KindAnnouncement, CreatorID: "f1", Audience: AllUsers{}},
			want:  []string{"u1", "u2", "u3", "f1"},
		},
		{
			name:  "faculty only",
			event: Event{Kind: KindAssessment, CreatorID: "f1", Audience: FacultyOnly{}},
			want:  []string{"f1"},
		},
		{
			name:  "explicit users deduplicates and drops blanks",
			event: Event{Kind: KindResult, CreatorID: "f1", Audience: ExplicitUsers{UserIDs: []string{"u1", "", "u1", "u2"}}},
			want:  []string{"u1", "u2"},
		},
		{
			name:  "nil audience falls back to creator",
			event: Event{Kind: KindAnnouncement, CreatorID: "f1"},
			want:  []string{"f1"},
		},
		{
			name:  "creator only",
			event: Event{Kind: KindAnnouncement, CreatorID: "f1", Audience: CreatorOnly{}},
			want:  []string{"f1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ResolveRecipients(ctx, tt.event)
			if tt.wantErr {
				require.Error(t, err)
				vErr, ok := errors.Cause(err).(*core.ValidationError)
				require.True(t, ok)
				require.NotEmpty(t, vErr.Fields)
				assert.Equal(t, "courseId", vErr.Fields[0].Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBroadcastBatching(t *testing.T) {
	ctx := context.Background()

	recipients := make([]string, 250)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("u%d", i)
	}
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)

	res, err := svc.Broadcast(ctx, Event{
		Kind:      KindAnnouncement,
		Title:     "Midterm schedule",
		CreatorID: "f1",
		Audience:  ExplicitUsers{UserIDs: recipients},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{100, 100, 50}, repo.batchSizes)
	assert.Equal(t, 250, res.Attempted)
	assert.Equal(t, 250, res.Created)
	assert.Empty(t, res.BatchErrors)
	require.Len(t, repo.created, 250)

	// one recipient per stored record
	for i, n := range repo.created {
		assert.Equal(t, recipients[i], n.RecipientID)
		assert.Equal(t, "New Notification: Midterm schedule", n.Message)
		assert.Equal(t, KindAnnouncement, n.Kind)
		assert.Equal(t, "f1", n.CreatorID)
		assert.False(t, n.IsRead)
	}
}

func TestBroadcastPartialBatchFailure(t *testing.T) {
	ctx := context.Background()

	recipients := make([]string, 250)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("u%d", i)
	}
	repo := &fakeRepo{
		failBatch: func(idx int, _ []Notification) error {
			if idx == 1 {
				return errors.New("boom")
			}
			return nil
		},
	}
	svc := newTestService(repo, nil, nil)

	res, err := svc.Broadcast(ctx, Event{
		Kind:      KindAnnouncement,
		Title:     "Holiday notice",
		CreatorID: "a1",
		Audience:  ExplicitUsers{UserIDs: recipients},
	})

	// a failed batch never surfaces as an error
	require.NoError(t, err)
	assert.Equal(t, 250, res.Attempted)
	assert.Equal(t, 150, res.Created)
	require.Len(t, res.BatchErrors, 1)

	// batches before and after the failure still went through
	assert.Equal(t, []int{100, 100, 50}, repo.batchSizes)
	require.Len(t, repo.created, 150)
	assert.Equal(t, "u0", repo.created[0].RecipientID)
	assert.Equal(t, "u200", repo.created[100].RecipientID)
}

func TestBroadcastRejectedRecordsWithinBatch(t *testing.T) {
	ctx := context.Background()

	recipients := make([]string, 120)
	for i := range recipients {
		recipients[i] = fmt.Sprintf("u%d", i)
	}
	repo := &fakeRepo{
		failRecords: func(batch []Notification) int {
			if len(batch) == 100 {
				return 2 // unordered insert drops the bad rows only
			}
			return 0
		},
	}
	svc := newTestService(repo, nil, nil)

	res, err := svc.Broadcast(ctx, Event{
		Kind:      KindSubmission,
		Title:     "Submission received",
		CreatorID: "s1",
		Audience:  ExplicitUsers{UserIDs: recipients},
	})
	require.NoError(t, err)
	assert.Equal(t, 120, res.Attempted)
	assert.Equal(t, 118, res.Created)
	require.Len(t, res.BatchErrors, 1)
}

func TestBroadcastEmptyAudienceIsNoop(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	users := &fakeUserDir{}
	enrs := &fakeEnrollmentDir{ids: map[string][]string{}}
	svc := newTestService(repo, users, enrs)

	// explicit empty list
	res, err := svc.Broadcast(ctx, Event{
		Kind:      KindResult,
		Title:     "Results published",
		CreatorID: "f1",
		Audience:  ExplicitUsers{},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Attempted)
	assert.Zero(t, res.Created)
	assert.Empty(t, repo.batchSizes, "store must not be touched")
	assert.Zero(t, users.calls)

	// course with no live enrollments
	res, err = svc.Broadcast(ctx, Event{
		Kind:      KindAnnouncement,
		Title:     "Empty course",
		CreatorID: "f1",
		Audience:  CourseStudents{CourseID: "crs-empty"},
	})
	require.NoError(t, err)
	assert.Zero(t, res.Attempted)
	assert.Empty(t, repo.batchSizes, "store must not be touched")
	assert.Equal(t, 1, enrs.calls)
}

func TestBroadcastMissingCourseID(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)

	_, err := svc.Broadcast(ctx, Event{
		Kind:      KindAnnouncement,
		Title:     "Oops",
		CreatorID: "f1",
		Audience:  CourseStudents{},
	})
	require.Error(t, err)
	_, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Empty(t, repo.batchSizes, "store must not be touched")
}

func TestBroadcastExpiry(t *testing.T) {
	ctx := context.Background()
	repo := &fakeRepo{}
	svc := newTestService(repo, nil, nil)

	expiry := time.Now().Add(72 * time.Hour).UTC()
	_, err := svc.Broadcast(ctx, Event{
		Kind:      KindAnnouncement,
		Title:     "Expiring notice",
		CreatorID: "f1",
		Audience:  ExplicitUsers{UserIDs: []string{"u1"}},
		ExpiresAt: null.TimeFrom(expiry),
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	require.True(t, repo.created[0].ExpiresAt.Valid)
	assert.Equal(t, expiry, repo.created[0].ExpiresAt.Time)
}

func TestMarkReadNoIDs(t *testing.T) {
	svc := newTestService(nil, nil, nil)
	n, err := svc.MarkRead(context.Background(), "u1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteNoIDs(t *testing.T) {
	svc := newTestService(nil, nil, nil)
	require.NoError(t, svc.Delete(context.Background()))
}
