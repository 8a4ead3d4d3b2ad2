package institution

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
)

// institution lifecycle statuses
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

var AllStatuses = []string{StatusPending, StatusActive, StatusSuspended}

type (
	Institution struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Code         string    `json:"code"`
		Email        string    `json:"email"`
		Phone        string    `json:"phone,omitempty"`
		Website      string    `json:"website,omitempty"`
		Logo         string    `json:"logo,omitempty"`
		Street       string    `json:"street,omitempty"`
		City         string    `json:"city,omitempty"`
		State        string    `json:"state,omitempty"`
		Country      string    `json:"country,omitempty"`
		Pincode      string    `json:"pincode,omitempty"`
		AcademicYear string    `json:"academicYear,omitempty"`
		Semester     int       `json:"semester,omitempty"`
		Status       string    `json:"status"`
		CreatorID    string    `json:"creatorId"`
		CreatedAt    time.Time `json:"createdAt"`
		UpdatedAt    time.Time `json:"updatedAt"`
		DeletedAt    null.Time `json:"-"`
	}

	NewInstitution struct {
		Name         string `json:"name" validate:"required"`
		Code         string `json:"code" validate:"required,alphanum_"`
		Email        string `json:"email" validate:"required,email"`
		AcademicYear string `json:"academicYear"`
		Status       string `json:"status" validate:"institutionstatus"`
	}

	UpdateInstitution struct {
		Name         string `json:"name"`
		AcademicYear string `json:"academicYear"`
		Status       string `json:"status" validate:"institutionstatus"`
	}

	QueryFilter struct {
		Search string `json:"search" query:"search"` // matches Name
		Status string `json:"status" query:"status"`
	}
)

func (i *Institution) IsDeleted() bool {
	return i.DeletedAt.Valid
}

func (ni *NewInstitution) Validate(ctx context.Context, validate *validator.Validate, svc *Service) error {
	ni.Name = core.CleanString(ni.Name)
	ni.Code = core.CleanString(ni.Code, true /* lower */)
	ni.Email = core.CleanString(ni.Email, true /* lower */)

	if err := validate.StructCtx(ctx, ni); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, ni.Name, ni.Code)
}

func (ui *UpdateInstitution) Validate(ctx context.Context, validate *validator.Validate) error {
	ui.Name = core.CleanString(ui.Name)
	return validate.StructCtx(ctx, ui)
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}
