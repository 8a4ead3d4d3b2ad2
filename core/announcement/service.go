package announcement

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
	ErrNotFound         = errors.New("announcement not found")
	ErrAlreadyPublished = errors.New("announcement is already published")
	errCourseIDRequired = errors.New("course id is required when targeting course students")
	errPublishedAtPast  = errors.New("publish date cannot be in the past")
)

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		QueryAnnouncements(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Announcement, int, error)
		GetAnnouncement(ctx context.Context, id string) (Announcement, error)
		UpdateAnnouncement(ctx context.Context, ann Announcement) (Announcement, error)
		DeleteAnnouncementsByID(ctx context.Context, ids ...string) (int, error)
	}

	Courses interface {
		GetByID(ctx context.Context, id string) (course.Course, error)
	}

	// Notifier fans an event out to its audience.
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

func (svc *Service) Create(ctx context.Context, na NewAnnouncement, creatorID string) (Announcement, error) {
	if na.CourseID != "" {
		if _, err := svc.courses.GetByID(ctx, na.CourseID); err != nil {
			return Announcement{}, err
		}
	}

	now := time.Now().UTC()
	ann := Announcement{
		Title:       na.Title,
		Message:     na.Message,
		Type:        na.Type,
		CourseID:    na.CourseID,
		Target:      na.Target,
		Status:      StatusDraft,
		Attachments: na.Attachments,
		ExpiresAt:   na.ExpiresAt,
		CreatorID:   creatorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if ann.Type == "" {
		ann.Type = TypeInfo
	}
	if ann.Target == "" {
		ann.Target = TargetCourseStudents
	}
	return svc.repo.CreateAnnouncement(ctx, ann)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Announcement, int, error) {
	return svc.repo.QueryAnnouncements(ctx, filter, ordering, page)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Announcement, error) {
	return svc.repo.GetAnnouncement(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error) {
	ann, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, err
	}

	if ua.Title != "" {
		ann.Title = ua.Title
	}
	if ua.Message != "" {
		ann.Message = ua.Message
	}
	if ua.Type != "" {
		ann.Type = ua.Type
	}
	if ua.Attachments != nil {
		ann.Attachments = ua.Attachments
	}
	if ua.ExpiresAt.Valid {
		ann.ExpiresAt = ua.ExpiresAt
	}
	ann.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateAnnouncement(ctx, ann)
}

// Publish flips an announcement to published and fans it out to its target
// audience. The fan-out runs after the announcement is saved; its failures
// are logged but never undo the publish.
func (svc *Service) Publish(ctx context.Context, id string, pa PublishAnnouncement) (Announcement, notification.FanOutResult, error) {
	ann, err := svc.repo.GetAnnouncement(ctx, id)
	if err != nil {
		return Announcement{}, notification.FanOutResult{}, err
	}
	if ann.IsPublished() {
		return Announcement{}, notification.FanOutResult{}, core.NewValidationError(ErrAlreadyPublished)
	}

	now := time.Now().UTC()
	publishedAt := now
	if pa.PublishedAt.Valid {
		if pa.PublishedAt.Time.Before(now) {
			return Announcement{}, notification.FanOutResult{}, core.NewValidationError(errPublishedAtPast,
				core.FieldError{Field: "publishedAt", Error: errPublishedAtPast.Error()})
		}
		publishedAt = pa.PublishedAt.Time.UTC()
	}

	ann.Status = StatusPublished
	ann.PublishedAt = null.TimeFrom(publishedAt)
	ann.UpdatedAt = now

	ann, err = svc.repo.UpdateAnnouncement(ctx, ann)
	if err != nil {
		return Announcement{}, notification.FanOutResult{}, err
	}

	res := svc.fanOut(ann)
	return ann, res, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteAnnouncementsByID(ctx, ids...)
	return err
}

func (svc *Service) fanOut(ann Announcement) notification.FanOutResult {
	ctx, cancel := context.WithTimeout(context.Background(), svc.conf.Notify.Timeout)
	defer cancel()

	res, err := svc.notifier.Broadcast(ctx, notification.Event{
		Kind:      notification.KindAnnouncement,
		Title:     ann.Title,
		CreatorID: ann.CreatorID,
		Audience:  audienceFor(ann),
		ExpiresAt: ann.ExpiresAt,
	})
	if err != nil {
		svc.logger.Error("announcement fan-out failed", err)
	}
	return res
}

func audienceFor(ann Announcement) notification.Audience {
	switch ann.Target {
	case TargetCourseStudents:
		return notification.CourseStudents{CourseID: ann.CourseID}
	case TargetAllUsers:
		return notification.AllUsers{}
	case TargetFacultyOnly:
		return notification.FacultyOnly{}
	}
	return notification.CreatorOnly{}
}
