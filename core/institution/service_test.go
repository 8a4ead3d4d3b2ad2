package institution

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushub/backend/core"
)

type fakeRepo struct {
	Repository

	insts map[string]Institution
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{insts: make(map[string]Institution)}
}

func (r *fakeRepo) CheckUniqueness(_ context.Context, name, code string) error {
	for _, inst := range r.insts {
		if strings.EqualFold(inst.Name, name) || inst.Code == code {
			return ErrExists
		}
	}
	return nil
}

func (r *fakeRepo) CreateInstitution(_ context.Context, inst Institution) (Institution, error) {
	if inst.ID == "" {
		inst.ID = "inst1"
	}
	r.insts[inst.ID] = inst
	return inst, nil
}

func (r *fakeRepo) GetInstitution(_ context.Context, id string) (Institution, error) {
	inst, ok := r.insts[id]
	if !ok {
		return Institution{}, ErrNotFound
	}
	return inst, nil
}

func (r *fakeRepo) UpdateInstitution(_ context.Context, inst Institution) (Institution, error) {
	r.insts[inst.ID] = inst
	return inst, nil
}

func (r *fakeRepo) DeleteInstitutionsByID(_ context.Context, ids ...string) (int, error) {
	var cnt int
	for _, id := range ids {
		if _, ok := r.insts[id]; ok {
			delete(r.insts, id)
			cnt++
		}
	}
	return cnt, nil
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newFakeRepo())

	inst, err := svc.Create(ctx, NewInstitution{
		Name:  "Lycee Kabambare",
		Code:  "lyckab",
		Email: "info@kabambare.cd",
	}, "adm1")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, inst.Status) // default
	assert.Equal(t, "adm1", inst.CreatorID)
	assert.False(t, inst.CreatedAt.IsZero())

	inst, err = svc.Create(ctx, NewInstitution{
		Name:   "Institut Weza",
		Code:   "weza",
		Email:  "info@weza.cd",
		Status: StatusActive,
	}, "adm1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, inst.Status)
}

func TestCheckUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	_, err := svc.Create(ctx, NewInstitution{
		Name:  "Lycee Kabambare",
		Code:  "lyckab",
		Email: "info@kabambare.cd",
	}, "adm1")
	require.NoError(t, err)

	tests := []struct {
		name       string
		instName   string
		code       string
		wantExists bool
	}{
		{"same name", "lycee kabambare", "other", true},
		{"same code", "Other", "lyckab", true},
		{"both free", "Institut Weza", "weza", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CheckUniqueness(ctx, tt.instName, tt.code)
			if !tt.wantExists {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErr, ok := errors.Cause(err).(*core.ValidationError)
			require.True(t, ok)
			assert.Equal(t, ErrExists, errors.Cause(vErr.Err))
		})
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	inst, err := svc.Create(ctx, NewInstitution{
		Name:  "Lycee Kabambare",
		Code:  "lyckab",
		Email: "info@kabambare.cd",
	}, "adm1")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, inst.ID, UpdateInstitution{
		AcademicYear: "2026-2027",
		Status:       StatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, inst.Name, updated.Name) // untouched
	assert.Equal(t, "2026-2027", updated.AcademicYear)
	assert.Equal(t, StatusActive, updated.Status)
	assert.True(t, updated.UpdatedAt.After(inst.UpdatedAt) || updated.UpdatedAt.Equal(inst.UpdatedAt))

	_, err = svc.Update(ctx, "nope", UpdateInstitution{Status: StatusSuspended})
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc := NewService(repo)

	inst, err := svc.Create(ctx, NewInstitution{
		Name:  "Lycee Kabambare",
		Code:  "lyckab",
		Email: "info@kabambare.cd",
	}, "adm1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, inst.ID))
	_, err = svc.GetByID(ctx, inst.ID)
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}
