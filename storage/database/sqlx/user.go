package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/campushub/backend/core"
	"github.com/campushub/backend/core/user"
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

type userRow struct {
	ID           string     `db:"id"`
	Username     string     `db:"username"`
	Email        string     `db:"email"`
	FullName     string     `db:"full_name"`
	Role         string     `db:"role"`
	Avatar       string     `db:"avatar"`
	IsActive     null.Bool  `db:"is_active"`
	PasswordHash null.Bytes `db:"password_hash"`
	LastLogin    null.Time  `db:"last_login"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	DeletedAt    null.Time  `db:"deleted_at"`
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Username:     usr.Username,
		Email:        usr.Email,
		FullName:     usr.FullName,
		Role:         usr.Role,
		Avatar:       usr.Avatar,
		IsActive:     null.BoolFromPtr(usr.IsActive),
		PasswordHash: null.BytesFrom(usr.PasswordHash),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		DeletedAt:    usr.DeletedAt,
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Username:     row.Username,
		Email:        row.Email,
		FullName:     row.FullName,
		Role:         row.Role,
		Avatar:       row.Avatar,
		IsActive:     row.IsActive.Ptr(),
		PasswordHash: row.PasswordHash.Bytes,
		LastLogin:    row.LastLogin.Time,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		DeletedAt:    row.DeletedAt,
	}
}

func (repo userRepository) fromRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	for _, pair := range []struct {
		column, value string
		conflict      error
	}{
		{"username", username, user.ErrUsernameExists},
		{"email", email, user.ErrEmailExists},
	} {
		query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM "user" WHERE %s = ? AND deleted_at IS NULL`, pair.column)
		args := []interface{}{pair.value}
		if len(excludedUsers) > 0 {
			ids := make([]string, 0, len(excludedUsers))
			for _, u := range excludedUsers {
				ids = append(ids, u.ID)
			}
			query += " AND id NOT IN (?)"
			args = append(args, ids)
		}
		query += ")"

		query, inArgs, err := sqlx.In(query, args...)
		if err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		var exists bool
		if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), inArgs...); err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if exists {
			return pair.conflict
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	row := repo.toRow(usr)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO "user" (id, username, email, full_name, role, avatar, is_active, password_hash, last_login, created_at, updated_at)
		VALUES (:id, :username, :email, :full_name, :role, :avatar, :is_active, :password_hash, :last_login, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]user.User, int, error) {
	where := "WHERE deleted_at IS NULL"
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where += fmt.Sprintf(" AND (username ILIKE %[1]s OR email ILIKE %[1]s OR full_name ILIKE %[1]s)", arg(val))
		}
		if filter.Role != "" {
			where += " AND role = " + arg(filter.Role)
		}
		if filter.IsActive != nil {
			where += " AND is_active = " + arg(*filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			where += " AND created_at >= " + arg(filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			where += " AND created_at <= " + arg(filter.CreatedTo.UTC())
		}
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, `SELECT count(*) FROM "user" `+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting users")
	}

	query := `SELECT * FROM "user" ` + where +
		orderClause(ordering, "created_at DESC", "username", "email", "full_name", "role", "created_at", "last_login") +
		pageClause(page)
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying users")
	}
	return repo.fromRows(rows), total, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var row userRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE id = $1 AND deleted_at IS NULL`, filter.ID)
	case filter.Username != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE username = $1 AND deleted_at IS NULL`, filter.Username)
	case filter.Email != "":
		err = repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE email = $1 AND deleted_at IS NULL`, filter.Email)
	case filter.UsernameOrEmail != nil:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		err = repo.db.GetContext(ctx, &row,
			`SELECT * FROM "user" WHERE (username = $1 OR email = $2) AND deleted_at IS NULL`, uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := repo.toRow(usr)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE "user"
		SET username = :username, email = :email, full_name = :full_name, role = :role, avatar = :avatar,
		    is_active = :is_active, password_hash = :password_hash, last_login = :last_login, updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`,
		row)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`UPDATE "user" SET deleted_at = now() WHERE id IN (?) AND deleted_at IS NULL`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

// ActiveUserIDs feeds the notification fan-out's audience lookups.
func (repo userRepository) ActiveUserIDs(ctx context.Context, roles ...string) ([]string, error) {
	query := `SELECT id FROM "user" WHERE deleted_at IS NULL AND is_active IS NOT FALSE`
	var args []interface{}
	if len(roles) > 0 {
		query += " AND role IN (?)"
		args = append(args, roles)
	}

	query, inArgs, err := sqlx.In(query+" ORDER BY created_at", args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying active user IDs")
	}
	var ids []string
	if err = repo.db.SelectContext(ctx, &ids, repo.db.Rebind(query), inArgs...); err != nil {
		return nil, errors.Wrap(err, "querying active user IDs")
	}
	return ids, nil
}
