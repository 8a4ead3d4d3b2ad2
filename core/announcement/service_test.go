package announcement

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/course"
	"github.com/campushub/backend/core/notification"
)

type fakeRepo struct {
	anns map[string]Announcement
}

func newFakeRepo(anns ...Announcement) *fakeRepo {
	r := &fakeRepo{anns: make(map[string]Announcement)}
	for _, a := range anns {
		r.anns[a.ID] = a
	}
	return r
}

func (r *fakeRepo) CreateAnnouncement(_ context.Context, ann Announcement) (Announcement, error) {
	if ann.ID == "" {
		ann.ID = "ann1"
	}
	r.anns[ann.ID] = ann
	return ann, nil
}

func (r *fakeRepo) QueryAnnouncements(context.Context, *QueryFilter, []core.DBOrdering, *core.Pagination) ([]Announcement, int, error) {
	out := make([]Announcement, 0, len(r.anns))
	for _, a := range r.anns {
		out = append(out, a)
	}
	return out, len(out), nil
}

func (r *fakeRepo) GetAnnouncement(_ context.Context, id string) (Announcement, error) {
	a, ok := r.anns[id]
	if !ok {
		return Announcement{}, ErrNotFound
	}
	return a, nil
}

func (r *fakeRepo) UpdateAnnouncement(_ context.Context, ann Announcement) (Announcement, error) {
	r.anns[ann.ID] = ann
	return ann, nil
}

func (r *fakeRepo) DeleteAnnouncementsByID(_ context.Context, ids ...string) (int, error) {
	for _, id := range ids {
		delete(r.anns, id)
	}
	return len(ids), nil
}

type fakeNotifier struct {
	events []notification.Event
	err    error
}

func (n *fakeNotifier) Broadcast(_ context.Context, ev notification.Event) (notification.FanOutResult, error) {
	n.events = append(n.events, ev)
	if n.err != nil {
		return notification.FanOutResult{}, n.err
	}
	return notification.FanOutResult{Attempted: 1, Created: 1}, nil
}

type fakeCourses struct {
	courses map[string]course.Course
}

func (c fakeCourses) GetByID(_ context.Context, id string) (course.Course, error) {
	crs, ok := c.courses[id]
	if !ok {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func testConf() *core.Config {
	return &core.Config{Notify: core.NotifyConfig{Timeout: 5 * time.Second}}
}

func testCourses() fakeCourses {
	return fakeCourses{courses: map[string]course.Course{
		"crs1": {ID: "crs1", Title: "Chemistry 101", CreatorID: "f1"},
	}}
}

func TestCreateUnknownCourse(t *testing.T) {
	svc := NewService(newFakeRepo(), testCourses(), &fakeNotifier{}, testConf(), nopLogger{})

	_, err := svc.Create(context.Background(), NewAnnouncement{
		Title:    "Room change",
		Message:  "We moved to B12.",
		CourseID: "nope",
		Target:   TargetCourseStudents,
	}, "f1")
	require.Error(t, err)
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}

func TestPublishFansOutToCourseStudents(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(Announcement{
		ID:        "ann1",
		Title:     "Midterm schedule",
		Message:   "Midterms start next Monday.",
		Type:      TypeInfo,
		CourseID:  "crs1",
		Target:    TargetCourseStudents,
		Status:    StatusDraft,
		CreatorID: "f1",
	})
	notifier := &fakeNotifier{}
	svc := NewService(repo, testCourses(), notifier, testConf(), nopLogger{})

	ann, res, err := svc.Publish(ctx, "ann1", PublishAnnouncement{})
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, ann.Status)
	require.True(t, ann.PublishedAt.Valid)
	assert.Equal(t, 1, res.Created)

	require.Len(t, notifier.events, 1)
	ev := notifier.events[0]
	assert.Equal(t, notification.KindAnnouncement, ev.Kind)
	assert.Equal(t, "Midterm schedule", ev.Title)
	assert.Equal(t, "f1", ev.CreatorID)
	assert.Equal(t, notification.CourseStudents{CourseID: "crs1"}, ev.Audience)
}

func TestPublishAlreadyPublished(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(Announcement{
		ID:     "ann1",
		Status: StatusPublished,
	})
	notifier := &fakeNotifier{}
	svc := NewService(repo, testCourses(), notifier, testConf(), nopLogger{})

	_, _, err := svc.Publish(ctx, "ann1", PublishAnnouncement{})
	require.Error(t, err)
	_, ok := errors.Cause(err).(*core.ValidationError)
	assert.True(t, ok)
	assert.Empty(t, notifier.events)
}

func TestPublishRejectsPastDate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(Announcement{ID: "ann1", Status: StatusDraft})
	notifier := &fakeNotifier{}
	svc := NewService(repo, testCourses(), notifier, testConf(), nopLogger{})

	_, _, err := svc.Publish(ctx, "ann1", PublishAnnouncement{
		PublishedAt: null.TimeFrom(time.Now().Add(-time.Hour)),
	})
	require.Error(t, err)
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	require.NotEmpty(t, vErr.Fields)
	assert.Equal(t, "publishedAt", vErr.Fields[0].Field)
	assert.Empty(t, notifier.events)
}

func TestPublishSurvivesFanOutFailure(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(Announcement{
		ID:        "ann1",
		Title:     "Holiday notice",
		Target:    TargetAllUsers,
		Status:    StatusDraft,
		CreatorID: "a1",
	})
	notifier := &fakeNotifier{err: errors.New("store down")}
	svc := NewService(repo, testCourses(), notifier, testConf(), nopLogger{})

	ann, _, err := svc.Publish(ctx, "ann1", PublishAnnouncement{})

	// the publish itself sticks even when the fan-out blows up
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, ann.Status)
	saved, err := repo.GetAnnouncement(ctx, "ann1")
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, saved.Status)
}

func TestNewAnnouncementValidateRequiresCourseID(t *testing.T) {
	na := NewAnnouncement{
		Title:   "Lab safety",
		Message: "Wear goggles.",
		Target:  TargetCourseStudents,
	}
	validate, translator := core.NewValidators()
	RegisterValidators(validate, translator)

	err := na.Validate(context.Background(), validate)
	require.Error(t, err)
	vErr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	require.NotEmpty(t, vErr.Fields)
	assert.Equal(t, "courseId", vErr.Fields[0].Field)
}

// end to end: a published course announcement reaches only live enrollments.
func TestPublishEndToEnd(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(Announcement{
		ID:        "ann1",
		Title:     "Guest lecture",
		Message:   "Friday at noon.",
		CourseID:  "crs1",
		Target:    TargetCourseStudents,
		Status:    StatusDraft,
		CreatorID: "f1",
	})

	notifRepo := &memNotifRepo{}
	enrs := &staticEnrollments{ids: map[string][]string{
		// s4 unenrolled; their soft-deleted enrollment is not returned
		"crs1": {"s1", "s2", "s3"},
	}}
	notifSvc := notification.NewService(notifRepo, staticUsers{}, enrs, nopLogger{})
	svc := NewService(repo, testCourses(), notifSvc, testConf(), nopLogger{})

	_, res, err := svc.Publish(ctx, "ann1", PublishAnnouncement{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempted)
	assert.Equal(t, 3, res.Created)
	require.Len(t, notifRepo.notifs, 3)

	wantRecipients := []string{"s1", "s2", "s3"}
	for i, n := range notifRepo.notifs {
		assert.Equal(t, wantRecipients[i], n.RecipientID)
		assert.Equal(t, notification.KindAnnouncement, n.Kind)
		assert.False(t, n.IsRead)
	}
}

type memNotifRepo struct {
	notification.Repository

	notifs []notification.Notification
}

func (r *memNotifRepo) CreateNotifications(_ context.Context, notifs []notification.Notification) (int, error) {
	r.notifs = append(r.notifs, notifs...)
	return len(notifs), nil
}

type staticUsers struct{}

func (staticUsers) ActiveUserIDs(context.Context, ...string) ([]string, error) {
	return nil, nil
}

type staticEnrollments struct {
	ids map[string][]string
}

func (e *staticEnrollments) ActiveEnrollmentUserIDs(_ context.Context, courseID string) ([]string, error) {
	return e.ids[courseID], nil
}
