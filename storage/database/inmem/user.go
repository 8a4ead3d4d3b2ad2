package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

// live returns non-deleted users sorted by creation time.
func (repo *userRepository) live() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, usr := range repo.db.table {
		if usr.DeletedAt.Valid {
			continue
		}
		users = append(users, *usr)
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users
}

func (repo *userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = struct{}{}
	}

	for _, usr := range repo.live() {
		if _, ok := excluded[usr.ID]; ok {
			continue
		}
		if username != "" && usr.Username == username {
			return user.ErrUsernameExists
		}
		if email != "" && usr.Email == email {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = newPK()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]user.User, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var users []user.User
	for _, usr := range repo.live() {
		if filter != nil {
			if filter.Search != "" &&
				!containsFold(usr.Username, filter.Search) &&
				!containsFold(usr.Email, filter.Search) &&
				!containsFold(usr.FullName, filter.Search) {
				continue
			}
			if filter.Role != "" && usr.Role != filter.Role {
				continue
			}
			if filter.IsActive != nil && (usr.IsActive == nil || *usr.IsActive != *filter.IsActive) {
				continue
			}
			if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
				continue
			}
			if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
				continue
			}
		}
		users = append(users, usr)
	}

	total := len(users)
	lo, hi := paginate(total, page)
	return users[lo:hi], total, nil
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.live() {
		switch {
		case filter.ID != "":
			if usr.ID == filter.ID {
				return usr, nil
			}
		case filter.Username != "":
			if usr.Username == filter.Username {
				return usr, nil
			}
		case filter.Email != "":
			if usr.Email == filter.Email {
				return usr, nil
			}
		case len(filter.UsernameOrEmail) == 2:
			if (filter.UsernameOrEmail[0] != "" && usr.Username == filter.UsernameOrEmail[0]) ||
				(filter.UsernameOrEmail[1] != "" && usr.Email == filter.UsernameOrEmail[1]) {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[usr.ID]
	if !ok || orig.DeletedAt.Valid {
		return user.User{}, user.ErrNotFound
	}
	usr.CreatedAt = orig.CreatedAt
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID != "" {
		if updated, err := repo.UpdateUser(ctx, usr); err == nil {
			return updated, nil
		}
	}
	return repo.CreateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	var cnt int
	for _, id := range ids {
		if usr, ok := repo.db.table[id]; ok && !usr.DeletedAt.Valid {
			usr.DeletedAt.SetValid(now)
			cnt++
		}
	}
	return cnt, nil
}

// ActiveUserIDs satisfies notification.UserDirectory.
func (repo *userRepository) ActiveUserIDs(ctx context.Context, roles ...string) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var ids []string
	for _, usr := range repo.live() {
		if usr.IsActive != nil && !*usr.IsActive {
			continue
		}
		if len(roles) > 0 {
			var match bool
			for _, role := range roles {
				if usr.Role == role {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		ids = append(ids, usr.ID)
	}
	return ids, nil
}
