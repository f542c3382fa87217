package doctor

import (
	"context"
	"fmt"

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

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const doctorCols = `d.id, d.user_id, u.full_name, d.specialty, d.location,
	d.consultation_fee, d.created_at, d.updated_at`

func (r *repoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.FullName, &d.Specialty, &d.Location,
		&d.ConsultationFee, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	if d.Specialty == "" {
		d.Specialty = DefaultSpecialty
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor (id, user_id, specialty, location, consultation_fee)
		VALUES ($1,$2,$3,$4,$5)`,
		d.ID, d.UserID, d.Specialty, d.Location, d.ConsultationFee)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `
		SELECT `+doctorCols+` FROM doctor d JOIN app_user u ON u.id = d.user_id
		WHERE d.id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `
		SELECT `+doctorCols+` FROM doctor d JOIN app_user u ON u.id = d.user_id
		WHERE d.user_id = $1`, userID))
}

func (r *repoPG) UpdateProfile(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor SET specialty=$2, location=$3, consultation_fee=$4, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Specialty, d.Location, d.ConsultationFee)
	return err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	query := `SELECT ` + doctorCols + ` FROM doctor d JOIN app_user u ON u.id = d.user_id WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM doctor d JOIN app_user u ON u.id = d.user_id WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["specialty"]; ok {
		query += fmt.Sprintf(` AND d.specialty ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND d.specialty ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND u.full_name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND u.full_name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["location"]; ok {
		query += fmt.Sprintf(` AND d.location ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND d.location ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY u.full_name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

const windowCols = `id, doctor_id, weekday, start_time, end_time, available, created_at`

func (r *repoPG) scanWindow(row pgx.Row) (*AvailabilityWindow, error) {
	var w AvailabilityWindow
	err := row.Scan(&w.ID, &w.DoctorID, &w.Weekday, &w.StartTime, &w.EndTime, &w.Available, &w.CreatedAt)
	return &w, err
}

func (r *repoPG) ListWindows(ctx context.Context, doctorID uuid.UUID) ([]*AvailabilityWindow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+windowCols+` FROM availability_window
		WHERE doctor_id = $1 ORDER BY weekday, start_time`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AvailabilityWindow
	for rows.Next() {
		w, err := r.scanWindow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

func (r *repoPG) GetWindow(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	return r.scanWindow(r.conn(ctx).QueryRow(ctx, `
		SELECT `+windowCols+` FROM availability_window WHERE id = $1`, id))
}

func (r *repoPG) ReplaceWindows(ctx context.Context, doctorID uuid.UUID, windows []*AvailabilityWindow) error {
	conn := r.conn(ctx)
	if _, err := conn.Exec(ctx, `DELETE FROM availability_window WHERE doctor_id = $1`, doctorID); err != nil {
		return err
	}
	for _, w := range windows {
		w.ID = uuid.New()
		w.DoctorID = doctorID
		if _, err := conn.Exec(ctx, `
			INSERT INTO availability_window (id, doctor_id, weekday, start_time, end_time, available)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			w.ID, w.DoctorID, w.Weekday, w.StartTime, w.EndTime, w.Available); err != nil {
			return err
		}
	}
	return nil
}
