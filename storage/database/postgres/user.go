package pgrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core/user"
)

type userRow struct {
	ID           string         `db:"id"`
	Name         string         `db:"name"`
	Username     string         `db:"username"`
	Email        string         `db:"email"`
	IsActive     bool           `db:"is_active"`
	Roles        pq.StringArray `db:"roles"`
	PasswordHash []byte         `db:"password_hash"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
	LastLogin    time.Time      `db:"last_login"`
}

func (r userRow) unpack() user.User {
	isActive := r.IsActive
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     &isActive,
		Roles:        r.Roles,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin,
	}
}

func unpackUserRows(rows []userRow) []user.User {
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.unpack())
	}
	return users
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	q := `SELECT username, email FROM "user" WHERE (lower(username) = lower($1) OR lower(email) = lower($2))`
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q += ` AND id != ALL($3)`
		args = append(args, pq.Array(ids))
	}

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	for _, r := range rows {
		if strings.EqualFold(r.Username, username) {
			return user.ErrUsernameExists
		}
		if strings.EqualFold(r.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	isActive := true
	if usr.IsActive != nil {
		isActive = *usr.IsActive
	}
	q := `
INSERT INTO "user" (id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, q,
		usr.ID, usr.Name, usr.Username, usr.Email, isActive, pq.Array(usr.Roles),
		usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), usr.LastLogin.UTC(),
	)
	if err != nil {
		return user.User{}, errors.Wrap(err, "creating user")
	}
	usr.IsActive = &isActive
	return usr, nil
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM "user" ORDER BY created_at DESC`); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return unpackUserRows(rows), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE id = $1`, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by id")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE lower(username) = lower($1)`, username); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by username")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM "user" WHERE lower(email) = lower($1)`, email); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by email")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	var row userRow
	q := `SELECT * FROM "user" WHERE lower(username) = lower($1) OR lower(email) = lower($1)`
	if err := repo.db.GetContext(ctx, &row, q, username); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user by username or email")
	}
	return row.unpack(), nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	conds := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		conds = append(conds, fmt.Sprintf("(name ILIKE %[1]s OR username ILIKE %[1]s OR email ILIKE %[1]s)", p))
	}
	if filter.Roles != nil {
		conds = append(conds, fmt.Sprintf("roles && %s", arg(pq.Array(filter.Roles))))
	}
	if filter.IsActive != nil {
		conds = append(conds, fmt.Sprintf("is_active = %s", arg(*filter.IsActive)))
	}
	if !filter.CreatedFrom.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at >= %s", arg(filter.CreatedFrom.UTC())))
	}
	if !filter.CreatedTo.IsZero() {
		conds = append(conds, fmt.Sprintf("created_at <= %s", arg(filter.CreatedTo.UTC())))
	}

	q := `SELECT * FROM "user"`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY created_at DESC"

	var rows []userRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "filtering users")
	}
	return unpackUserRows(rows), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, isActive *bool) (user.User, error) {
	// only save set fields
	sets := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	set := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if usr.Name != "" {
		set("name", usr.Name)
	}
	if usr.Username != "" {
		set("username", usr.Username)
	}
	if usr.Email != "" {
		set("email", usr.Email)
	}
	if usr.Roles != nil {
		set("roles", pq.Array(usr.Roles))
	}
	if usr.PasswordHash != nil {
		set("password_hash", usr.PasswordHash)
	}
	if isActive != nil {
		set("is_active", *isActive)
	}
	if !usr.LastLogin.IsZero() {
		set("last_login", usr.LastLogin.UTC())
	}
	set("updated_at", time.Now().UTC())

	args = append(args, usr.ID)
	q := fmt.Sprintf(`UPDATE "user" SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := repo.db.ExecContext(ctx, q, args...)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM "user" WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
