package announcement

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
)

// announcement types
const (
	TypeInfo    = "info"
	TypeWarning = "warning"
	TypeUrgent  = "urgent"
)

// announcement statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// announcement targets
const (
	TargetCourseStudents = "course_students"
	TargetAllUsers       = "all_users"
	TargetFacultyOnly    = "faculty_only"
)

var (
	AllTypes    = []string{TypeInfo, TypeWarning, TypeUrgent}
	AllStatuses = []string{StatusDraft, StatusPublished, StatusArchived}
	AllTargets  = []string{TargetCourseStudents, TargetAllUsers, TargetFacultyOnly}
)

type (
	Announcement struct {
		ID          string    `json:"id"`
		Title       string    `json:"title"`
		Message     string    `json:"message"`
		Type        string    `json:"type"`
		CourseID    string    `json:"courseId,omitempty"`
		Target      string    `json:"target"`
		Status      string    `json:"status"`
		Attachments []string  `json:"attachments,omitempty"`
		PublishedAt null.Time `json:"publishedAt,omitempty"`
		ExpiresAt   null.Time `json:"expiresAt,omitempty"`
		CreatorID   string    `json:"creatorId"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
		DeletedAt   null.Time `json:"-"`
	}

	NewAnnouncement struct {
		Title       string    `json:"title" validate:"required"`
		Message     string    `json:"message" validate:"required"`
		Type        string    `json:"type" validate:"announcementtype"`
		CourseID    string    `json:"courseId"`
		Target      string    `json:"target" validate:"announcementtarget"`
		Attachments []string  `json:"attachments"`
		ExpiresAt   null.Time `json:"expiresAt"`
	}

	UpdateAnnouncement struct {
		Title       string    `json:"title"`
		Message     string    `json:"message"`
		Type        string    `json:"type" validate:"announcementtype"`
		Attachments []string  `json:"attachments"`
		ExpiresAt   null.Time `json:"expiresAt"`
	}

	// PublishAnnouncement schedules an announcement going live. A zero
	// PublishedAt means now.
	PublishAnnouncement struct {
		PublishedAt null.Time `json:"publishedAt"`
	}

	QueryFilter struct {
		Search   string `json:"search" query:"search"` // matches Title
		CourseID string `json:"courseId" query:"course_id"`
		Status   string `json:"status" query:"status"`
		Target   string `json:"target" query:"target"`
	}
)

func (a *Announcement) IsDeleted() bool {
	return a.DeletedAt.Valid
}

func (a *Announcement) IsPublished() bool {
	return a.Status == StatusPublished
}

func (na *NewAnnouncement) Validate(ctx context.Context, validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Message = core.CleanString(na.Message)
	na.Target = core.CleanString(na.Target, true /* lower */)

	if err := validate.StructCtx(ctx, na); err != nil {
		return err
	}
	if na.Target == TargetCourseStudents && na.CourseID == "" {
		return core.NewValidationError(errCourseIDRequired,
			core.FieldError{Field: "courseId", Error: errCourseIDRequired.Error()})
	}
	return nil
}

func (ua *UpdateAnnouncement) Validate(ctx context.Context, validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	ua.Message = core.CleanString(ua.Message)
	return validate.StructCtx(ctx, ua)
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
	qf.Target = core.CleanString(qf.Target, true /* lower */)
}
