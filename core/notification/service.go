package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/user"
)

// batchSize caps how many notifications go to the store in one write.
const batchSize = 100

var (
	// errors
	ErrNotFound         = errors.New("notification not found")
	errCourseIDRequired = errors.New("course id is required for a course students audience")
	errUnknownAudience  = errors.New("unknown audience")
)

type (
	Repository interface {
		// CreateNotifications persists up to batchSize notifications in one
		// write and returns how many made it in. Unordered semantics: a bad
		// record must not take down the rest of its batch.
		CreateNotifications(ctx context.Context, notifs []Notification) (int, error)
		QueryNotifications(ctx context.Context, recipientID string, filter *QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Notification, int, error)
		GetNotification(ctx context.Context, id string) (Notification, error)
		// MarkNotificationsRead flips IsRead for the given ids belonging to
		// recipientID only, and returns how many rows changed.
		MarkNotificationsRead(ctx context.Context, recipientID string, readAt time.Time, ids ...string) (int, error)
		DeleteNotificationsByID(ctx context.Context, ids ...string) (int, error)
	}

	// UserDirectory answers audience lookups against the user store.
	UserDirectory interface {
		// ActiveUserIDs returns the IDs of all live users, optionally
		// restricted to the given roles.
		ActiveUserIDs(ctx context.Context, roles ...string) ([]string, error)
	}

	// EnrollmentDirectory answers audience lookups against course enrollments.
	EnrollmentDirectory interface {
		ActiveEnrollmentUserIDs(ctx context.Context, courseID string) ([]string, error)
	}

	Service struct {
		repo        Repository
		users       UserDirectory
		enrollments EnrollmentDirectory
		logger      core.Logger
	}
)

func NewService(repo Repository, users UserDirectory, enrollments EnrollmentDirectory, logger core.Logger) *Service {
	return &Service{
		repo:        repo,
		users:       users,
		enrollments: enrollments,
		logger:      logger,
	}
}

// ResolveRecipients expands an Event's Audience into a deduplicated list of
// user IDs. A nil Audience falls back to the creator. A CourseStudents
// audience without a course ID is a core.ValidationError.
func (svc *Service) ResolveRecipients(ctx context.Context, ev Event) ([]string, error) {
	aud := ev.Audience
	if aud == nil {
		aud = CreatorOnly{}
	}

	var (
		ids []string
		err error
	)
	switch a := aud.(type) {
	case CourseStudents:
		if a.CourseID == "" {
			return nil, core.NewValidationError(errCourseIDRequired,
				core.FieldError{Field: "courseId", Error: errCourseIDRequired.Error()})
		}
		ids, err = svc.enrollments.ActiveEnrollmentUserIDs(ctx, a.CourseID)
	case AllUsers:
		ids, err = svc.users.ActiveUserIDs(ctx)
	case FacultyOnly:
		ids, err = svc.users.ActiveUserIDs(ctx, user.RoleFaculty)
	case ExplicitUsers:
		ids = a.UserIDs
	case CreatorOnly:
		ids = []string{ev.CreatorID}
	default:
		return nil, errors.Wrapf(errUnknownAudience, "%T", a)
	}
	if err != nil {
		return nil, errors.Wrap(err, "resolving recipients")
	}
	return core.Dedupe(ids), nil
}

// Broadcast resolves an Event's recipients and writes one notification per
// recipient in batches. An empty recipient set is a no-op that never touches
// the store. Failed batches are recorded on the result and logged; the
// remaining batches still go through.
func (svc *Service) Broadcast(ctx context.Context, ev Event) (FanOutResult, error) {
	recipients, err := svc.ResolveRecipients(ctx, ev)
	if err != nil {
		return FanOutResult{}, err
	}
	return svc.Write(ctx, recipients, ev), nil
}

// Write persists one notification per recipient in batches of batchSize.
// Zero recipients means zero store calls. A failed batch is recorded on the
// result and logged; the remaining batches still go through.
func (svc *Service) Write(ctx context.Context, recipients []string, ev Event) FanOutResult {
	if len(recipients) == 0 {
		return FanOutResult{}
	}

	now := time.Now().UTC()
	notifs := make([]Notification, 0, len(recipients))
	for _, rid := range recipients {
		notifs = append(notifs, Notification{
			Message:     fmt.Sprintf("New Notification: %s", ev.Title),
			Kind:        ev.Kind,
			CreatorID:   ev.CreatorID,
			RecipientID: rid,
			ExpiresAt:   ev.ExpiresAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	res := FanOutResult{Attempted: len(notifs)}
	for i := 0; i < len(notifs); i += batchSize {
		end := i + batchSize
		if end > len(notifs) {
			end = len(notifs)
		}
		created, err := svc.repo.CreateNotifications(ctx, notifs[i:end])
		res.Created += created
		if err != nil {
			res.BatchErrors = append(res.BatchErrors, err)
			svc.logger.Error("notification batch write failed", err)
		}
	}
	return res
}

func (svc *Service) Query(ctx context.Context, recipientID string, filter *QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Notification, int, error) {
	return svc.repo.QueryNotifications(ctx, recipientID, filter, ordering, page)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Notification, error) {
	return svc.repo.GetNotification(ctx, id)
}

// MarkRead marks the given notifications read for recipientID. IDs belonging
// to other recipients are left untouched.
func (svc *Service) MarkRead(ctx context.Context, recipientID string, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return svc.repo.MarkNotificationsRead(ctx, recipientID, time.Now().UTC(), ids...)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteNotificationsByID(ctx, ids...)
	return err
}
