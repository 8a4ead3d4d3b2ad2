package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/institution"
)

type institutionRepository struct {
	db *institutionTable
}

var _ institution.Repository = (*institutionRepository)(nil)

func NewInstitutionRepository(db *DB) *institutionRepository {
	return &institutionRepository{db: db.institution}
}

func (repo *institutionRepository) live() []institution.Institution {
	insts := make([]institution.Institution, 0, len(repo.db.table))
	for _, inst := range repo.db.table {
		if inst.DeletedAt.Valid {
			continue
		}
		insts = append(insts, *inst)
	}
	sort.SliceStable(insts, func(i, j int) bool { return insts[i].CreatedAt.Before(insts[j].CreatedAt) })
	return insts
}

func (repo *institutionRepository) CheckUniqueness(ctx context.Context, name, code string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, inst := range repo.live() {
		if strings.EqualFold(inst.Name, name) || inst.Code == code {
			return institution.ErrExists
		}
	}
	return nil
}

func (repo *institutionRepository) CreateInstitution(ctx context.Context, inst institution.Institution) (institution.Institution, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	inst.ID = newPK()
	repo.db.table[inst.ID] = &inst
	return inst, nil
}

func (repo *institutionRepository) QueryInstitutions(ctx context.Context, filter *institution.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]institution.Institution, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var insts []institution.Institution
	for _, inst := range repo.live() {
		if filter != nil {
			if filter.Search != "" && !containsFold(inst.Name, filter.Search) {
				continue
			}
			if filter.Status != "" && inst.Status != filter.Status {
				continue
			}
		}
		insts = append(insts, inst)
	}

	total := len(insts)
	lo, hi := paginate(total, page)
	return insts[lo:hi], total, nil
}

func (repo *institutionRepository) GetInstitution(ctx context.Context, id string) (institution.Institution, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inst, ok := repo.db.table[id]; ok && !inst.DeletedAt.Valid {
		return *inst, nil
	}
	return institution.Institution{}, institution.ErrNotFound
}

func (repo *institutionRepository) UpdateInstitution(ctx context.Context, inst institution.Institution) (institution.Institution, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[inst.ID]
	if !ok || orig.DeletedAt.Valid {
		return institution.Institution{}, institution.ErrNotFound
	}
	inst.CreatedAt = orig.CreatedAt
	repo.db.table[inst.ID] = &inst
	return inst, nil
}

func (repo *institutionRepository) DeleteInstitutionsByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	var cnt int
	for _, id := range ids {
		if inst, ok := repo.db.table[id]; ok && !inst.DeletedAt.Valid {
			inst.DeletedAt.SetValid(now)
			cnt++
		}
	}
	return cnt, nil
}
