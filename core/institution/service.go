package institution

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/campushub/backend/core"
)

var (
	// errors
	ErrNotFound = errors.New("institution not found")
	ErrExists   = errors.New("an institution with this name or code already exists")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrExists when a live institution matches
		// name (case-insensitively) or code.
		CheckUniqueness(ctx context.Context, name, code string) error
		CreateInstitution(ctx context.Context, inst Institution) (Institution, error)
		QueryInstitutions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Institution, int, error)
		GetInstitution(ctx context.Context, id string) (Institution, error)
		UpdateInstitution(ctx context.Context, inst Institution) (Institution, error)
		DeleteInstitutionsByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(ctx context.Context, name, code string) error {
	if err := svc.repo.CheckUniqueness(ctx, name, code); err != nil {
		if errors.Cause(err) == ErrExists {
			return core.NewValidationError(err)
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ni NewInstitution, creatorID string) (Institution, error) {
	now := time.Now().UTC()
	inst := Institution{
		Name:         ni.Name,
		Code:         ni.Code,
		Email:        ni.Email,
		AcademicYear: ni.AcademicYear,
		Status:       ni.Status,
		CreatorID:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if inst.Status == "" {
		inst.Status = StatusPending
	}
	return svc.repo.CreateInstitution(ctx, inst)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]Institution, int, error) {
	return svc.repo.QueryInstitutions(ctx, filter, ordering, page)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Institution, error) {
	return svc.repo.GetInstitution(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, ui UpdateInstitution) (Institution, error) {
	inst, err := svc.repo.GetInstitution(ctx, id)
	if err != nil {
		return Institution{}, err
	}

	if ui.Name != "" {
		inst.Name = ui.Name
	}
	if ui.AcademicYear != "" {
		inst.AcademicYear = ui.AcademicYear
	}
	if ui.Status != "" {
		inst.Status = ui.Status
	}
	inst.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateInstitution(ctx, inst)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteInstitutionsByID(ctx, ids...)
	return err
}
