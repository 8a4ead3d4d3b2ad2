package course

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/user"
)

// material types
const (
	MaterialText  = "text"
	MaterialVideo = "video"
	MaterialFile  = "file"
	MaterialLink  = "link"
)

// enrollment statuses
const (
	EnrollmentActive    = "active"
	EnrollmentCompleted = "completed"
	EnrollmentDropped   = "dropped"
)

var (
	AllMaterialTypes      = []string{MaterialText, MaterialVideo, MaterialFile, MaterialLink}
	AllEnrollmentStatuses = []string{EnrollmentActive, EnrollmentCompleted, EnrollmentDropped}
)

type (
	Course struct {
		ID           string    `json:"id"`
		Title        string    `json:"title"`
		Content      string    `json:"content,omitempty"`
		PriceInPaise int64     `json:"priceInPaise"`
		CreatorID    string    `json:"creatorId"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
		DeletedAt    null.Time `json:"-"`
	}

	Material struct {
		ID          string    `json:"id"`
		CourseID    string    `json:"courseId"`
		Name        string    `json:"name"`
		Description string    `json:"description,omitempty"`
		Type        string    `json:"type"`
		Content     string    `json:"content,omitempty"`
		FileURL     string    `json:"fileUrl,omitempty"`
		FileType    string    `json:"fileType,omitempty"`
		FileSize    int64     `json:"fileSize,omitempty"`
		Order       int       `json:"order"`
		Duration    int       `json:"duration,omitempty"`
		IsPreview   bool      `json:"isPreview"`
		Published   bool      `json:"published"`
		CreatorID   string    `json:"creatorId"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
		DeletedAt   null.Time `json:"-"`
	}

	Enrollment struct {
		ID        string    `json:"id"`
		UserID    string    `json:"userId"`
		CourseID  string    `json:"courseId"`
		Role      string    `json:"role"`
		Status    string    `json:"status"`
		Remarks   string    `json:"remarks,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
		DeletedAt null.Time `json:"-"`
	}

	NewCourse struct {
		Title        string `json:"title" validate:"required"`
		Content      string `json:"content"`
		PriceInPaise int64  `json:"priceInPaise" validate:"min=0"`
	}

	UpdateCourse struct {
		Title        string `json:"title"`
		Content      string `json:"content"`
		PriceInPaise *int64 `json:"priceInPaise" validate:"omitempty,min=0"`
	}

	NewMaterial struct {
		Name        string `json:"name" validate:"required"`
		Description string `json:"description"`
		Type        string `json:"type" validate:"materialtype"`
		Content     string `json:"content"`
		FileURL     string `json:"fileUrl" validate:"omitempty,url"`
		FileType    string `json:"fileType"`
		FileSize    int64  `json:"fileSize" validate:"min=0"`
		Order       int    `json:"order" validate:"min=0"`
		Duration    int    `json:"duration" validate:"min=0"`
		IsPreview   bool   `json:"isPreview"`
		Published   bool   `json:"published"`
	}

	UpdateMaterial struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Content     string `json:"content"`
		Order       *int   `json:"order" validate:"omitempty,min=0"`
		IsPreview   *bool  `json:"isPreview"`
		Published   *bool  `json:"published"`
	}

	NewEnrollment struct {
		UserID  string `json:"userId" validate:"required"`
		Role    string `json:"role" validate:"userrole"`
		Remarks string `json:"remarks"`
	}

	QueryFilter struct {
		Search    string `json:"search" query:"search"` // matches Title
		CreatorID string `json:"creatorId" query:"creator_id"`
	}
)

func (c *Course) IsDeleted() bool {
	return c.DeletedAt.Valid
}

func (e *Enrollment) IsDeleted() bool {
	return e.DeletedAt.Valid
}

func (nc *NewCourse) Validate(ctx context.Context, validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	return validate.StructCtx(ctx, nc)
}

func (uc *UpdateCourse) Validate(ctx context.Context, validate *validator.Validate) error {
	uc.Title = core.CleanString(uc.Title)
	return validate.StructCtx(ctx, uc)
}

func (nm *NewMaterial) Validate(ctx context.Context, validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.Type = core.CleanString(nm.Type, true /* lower */)
	return validate.StructCtx(ctx, nm)
}

func (um *UpdateMaterial) Validate(ctx context.Context, validate *validator.Validate) error {
	um.Name = core.CleanString(um.Name)
	return validate.StructCtx(ctx, um)
}

func (ne *NewEnrollment) Validate(ctx context.Context, validate *validator.Validate) error {
	ne.Role = core.CleanString(ne.Role, true /* lower */)
	if ne.Role == "" {
		ne.Role = user.RoleStudent
	}
	return validate.StructCtx(ctx, ne)
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
