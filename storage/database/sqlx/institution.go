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
	"github.com/campushub/backend/core/institution"
)

type institutionRepository struct {
	db *sqlx.DB
}

var _ institution.Repository = (*institutionRepository)(nil) // interface compliance check

func NewInstitutionRepository(db *sqlx.DB) *institutionRepository {
	return &institutionRepository{db: db}
}

type institutionRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Code         string    `db:"code"`
	Email        string    `db:"email"`
	Phone        string    `db:"phone"`
	Website      string    `db:"website"`
	Logo         string    `db:"logo"`
	Street       string    `db:"street"`
	City         string    `db:"city"`
	State        string    `db:"state"`
	Country      string    `db:"country"`
	Pincode      string    `db:"pincode"`
	AcademicYear string    `db:"academic_year"`
	Semester     int       `db:"semester"`
	Status       string    `db:"status"`
	CreatorID    string    `db:"creator_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	DeletedAt    null.Time `db:"deleted_at"`
}

func (repo institutionRepository) toRow(inst institution.Institution) institutionRow {
	return institutionRow{
		ID:           inst.ID,
		Name:         inst.Name,
		Code:         inst.Code,
		Email:        inst.Email,
		Phone:        inst.Phone,
		Website:      inst.Website,
		Logo:         inst.Logo,
		Street:       inst.Street,
		City:         inst.City,
		State:        inst.State,
		Country:      inst.Country,
		Pincode:      inst.Pincode,
		AcademicYear: inst.AcademicYear,
		Semester:     inst.Semester,
		Status:       inst.Status,
		CreatorID:    inst.CreatorID,
		CreatedAt:    inst.CreatedAt.UTC(),
		UpdatedAt:    inst.UpdatedAt.UTC(),
		DeletedAt:    inst.DeletedAt,
	}
}

func (repo institutionRepository) fromRow(row institutionRow) institution.Institution {
	return institution.Institution{
		ID:           row.ID,
		Name:         row.Name,
		Code:         row.Code,
		Email:        row.Email,
		Phone:        row.Phone,
		Website:      row.Website,
		Logo:         row.Logo,
		Street:       row.Street,
		City:         row.City,
		State:        row.State,
		Country:      row.Country,
		Pincode:      row.Pincode,
		AcademicYear: row.AcademicYear,
		Semester:     row.Semester,
		Status:       row.Status,
		CreatorID:    row.CreatorID,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		DeletedAt:    row.DeletedAt,
	}
}

func (repo institutionRepository) CheckUniqueness(ctx context.Context, name, code string) error {
	var exists bool
	err := repo.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM institution WHERE (lower(name) = lower($1) OR code = $2) AND deleted_at IS NULL)`,
		name, code)
	if err != nil {
		return errors.Wrap(err, "checking institution uniqueness")
	}
	if exists {
		return institution.ErrExists
	}
	return nil
}

func (repo institutionRepository) CreateInstitution(ctx context.Context, inst institution.Institution) (institution.Institution, error) {
	inst.ID = uuid.New().String()
	row := repo.toRow(inst)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO institution (id, name, code, email, phone, website, logo, street, city, state, country, pincode,
		                         academic_year, semester, status, creator_id, created_at, updated_at)
		VALUES (:id, :name, :code, :email, :phone, :website, :logo, :street, :city, :state, :country, :pincode,
		        :academic_year, :semester, :status, :creator_id, :created_at, :updated_at)`,
		row)
	if err != nil {
		if isUniqueViolation(err) {
			return institution.Institution{}, institution.ErrExists
		}
		return institution.Institution{}, errors.Wrap(err, "inserting institution")
	}
	return inst, nil
}

func (repo institutionRepository) QueryInstitutions(ctx context.Context, filter *institution.QueryFilter, ordering []core.DBOrdering, page *core.Pagination) ([]institution.Institution, int, error) {
	where := "WHERE deleted_at IS NULL"
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.Search != "" {
			where += fmt.Sprintf(" AND name ILIKE %s", arg("%"+filter.Search+"%"))
		}
		if filter.Status != "" {
			where += " AND status = " + arg(filter.Status)
		}
	}

	var total int
	if err := repo.db.GetContext(ctx, &total, "SELECT count(*) FROM institution "+where, args...); err != nil {
		return nil, 0, errors.Wrap(err, "counting institutions")
	}

	query := "SELECT * FROM institution " + where +
		orderClause(ordering, "created_at DESC", "name", "code", "status", "created_at") +
		pageClause(page)
	var rows []institutionRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, errors.Wrap(err, "querying institutions")
	}

	insts := make([]institution.Institution, 0, len(rows))
	for _, row := range rows {
		insts = append(insts, repo.fromRow(row))
	}
	return insts, total, nil
}

func (repo institutionRepository) GetInstitution(ctx context.Context, id string) (institution.Institution, error) {
	if _, err := uuid.Parse(id); err != nil {
		return institution.Institution{}, institution.ErrNotFound
	}
	var row institutionRow
	err := repo.db.GetContext(ctx, &row, "SELECT * FROM institution WHERE id = $1 AND deleted_at IS NULL", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return institution.Institution{}, institution.ErrNotFound
		}
		return institution.Institution{}, errors.Wrap(err, "finding institution")
	}
	return repo.fromRow(row), nil
}

func (repo institutionRepository) UpdateInstitution(ctx context.Context, inst institution.Institution) (institution.Institution, error) {
	row := repo.toRow(inst)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE institution
		SET name = :name, code = :code, email = :email, phone = :phone, website = :website, logo = :logo,
		    street = :street, city = :city, state = :state, country = :country, pincode = :pincode,
		    academic_year = :academic_year, semester = :semester, status = :status, updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL`,
		row)
	if err != nil {
		return institution.Institution{}, errors.Wrap(err, "updating institution")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return institution.Institution{}, institution.ErrNotFound
	}
	return inst, nil
}

func (repo institutionRepository) DeleteInstitutionsByID(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In("UPDATE institution SET deleted_at = now() WHERE id IN (?) AND deleted_at IS NULL", ids)
	if err != nil {
		return 0, errors.Wrap(err, "deleting institutions")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(query), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting institutions")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}
