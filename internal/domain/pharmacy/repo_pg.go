package pharmacy

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

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const pharmacyCols = `p.id, p.user_id, u.full_name, p.location, p.created_at, p.updated_at`

func scanPharmacy(row pgx.Row) (*Pharmacy, error) {
	var p Pharmacy
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Location, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Pharmacy) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO pharmacy (id, user_id, location)
		VALUES ($1,$2,$3)`,
		p.ID, p.UserID, p.Location)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	return scanPharmacy(r.conn(ctx).QueryRow(ctx, `
		SELECT `+pharmacyCols+`
		FROM pharmacy p JOIN app_user u ON u.id = p.user_id
		WHERE p.id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*Pharmacy, error) {
	return scanPharmacy(r.conn(ctx).QueryRow(ctx, `
		SELECT `+pharmacyCols+`
		FROM pharmacy p JOIN app_user u ON u.id = p.user_id
		WHERE p.user_id = $1`, userID))
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Pharmacy, int, error) {
	where := ``
	args := []interface{}{}
	idx := 1

	if p, ok := params["name"]; ok {
		where += fmt.Sprintf(` AND u.full_name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["location"]; ok {
		where += fmt.Sprintf(` AND p.location ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM pharmacy p JOIN app_user u ON u.id = p.user_id WHERE 1=1` + where
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + pharmacyCols + `
		FROM pharmacy p JOIN app_user u ON u.id = p.user_id
		WHERE 1=1` + where +
		fmt.Sprintf(` ORDER BY u.full_name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Pharmacy
	for rows.Next() {
		p, err := scanPharmacy(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

const orderCols = `o.id, o.patient_id, o.pharmacy_id, o.medications, o.note, o.status,
	o.created_at, o.updated_at`

func scanOrder(row pgx.Row, extra ...interface{}) (*PrescriptionOrder, error) {
	var o PrescriptionOrder
	var status string
	dest := []interface{}{&o.ID, &o.PatientID, &o.PharmacyID, &o.Medications, &o.Note, &status,
		&o.CreatedAt, &o.UpdatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	var err error
	if o.Status, err = ParseOrderStatus(status); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repoPG) CreateOrder(ctx context.Context, o *PrescriptionOrder) error {
	o.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescription_order (id, patient_id, pharmacy_id, medications, note, status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		o.ID, o.PatientID, o.PharmacyID, o.Medications, o.Note, string(o.Status))
	return err
}

func (r *repoPG) GetOrder(ctx context.Context, id uuid.UUID) (*PrescriptionOrder, error) {
	return scanOrder(r.conn(ctx).QueryRow(ctx,
		`SELECT `+orderCols+` FROM prescription_order o WHERE o.id = $1`, id))
}

func (r *repoPG) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE prescription_order SET status=$2, updated_at=NOW() WHERE id = $1`, id, string(status))
	return err
}

func (r *repoPG) ListOrders(ctx context.Context, pharmacyID uuid.UUID, status string, limit, offset int) ([]*PharmacyOrder, int, error) {
	where := ` WHERE o.pharmacy_id = $1`
	args := []interface{}{pharmacyID}
	idx := 2

	if status != "" {
		where += fmt.Sprintf(` AND o.status = $%d`, idx)
		args = append(args, status)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM prescription_order o`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + orderCols + `, u.full_name, u.phone
		FROM prescription_order o
		JOIN app_user u ON u.id = o.patient_id` + where +
		fmt.Sprintf(` ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*PharmacyOrder
	for rows.Next() {
		var v PharmacyOrder
		o, err := scanOrder(rows, &v.PatientName, &v.PatientPhone)
		if err != nil {
			return nil, 0, err
		}
		v.PrescriptionOrder = *o
		items = append(items, &v)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListPatients(ctx context.Context, pharmacyID uuid.UUID) ([]*OrderPatient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT o.patient_id, u.full_name, u.phone, COUNT(*) AS order_count
		FROM prescription_order o
		JOIN app_user u ON u.id = o.patient_id
		WHERE o.pharmacy_id = $1
		GROUP BY o.patient_id, u.full_name, u.phone
		ORDER BY u.full_name ASC`, pharmacyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*OrderPatient
	for rows.Next() {
		var p OrderPatient
		if err := rows.Scan(&p.PatientID, &p.FullName, &p.Phone, &p.OrderCount); err != nil {
			return nil, err
		}
		items = append(items, &p)
	}
	return items, rows.Err()
}
