package user

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medbook/medbook/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const userCols = `id, email, full_name, phone, role, password_hash, totp_secret, totp_enabled,
	created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &role, &u.PasswordHash,
		&u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if u.Role, err = ParseRole(role); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO app_user (id, email, full_name, phone, role, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		u.ID, strings.ToLower(u.Email), u.FullName, u.Phone, string(u.Role), u.PasswordHash)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM app_user WHERE email = $1`, strings.ToLower(email)))
}

func (r *repoPG) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE app_user SET totp_secret=$2, totp_enabled=FALSE, updated_at=NOW() WHERE id = $1`,
		id, secret)
	return err
}

func (r *repoPG) SetTOTPEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE app_user SET totp_enabled=$2, updated_at=NOW() WHERE id = $1`, id, enabled)
	return err
}
