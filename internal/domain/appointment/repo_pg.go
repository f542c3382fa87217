package appointment

import (
	"context"
	"fmt"
	"time"

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

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `a.id, a.patient_id, a.doctor_id, a.window_id, a.date, a.type, a.status,
	a.payment_id, a.created_at, a.updated_at`

func scanAppointment(row pgx.Row, extra ...interface{}) (*Appointment, error) {
	var a Appointment
	var typ, status string
	dest := []interface{}{&a.ID, &a.PatientID, &a.DoctorID, &a.WindowID, &a.Date, &typ, &status,
		&a.PaymentID, &a.CreatedAt, &a.UpdatedAt}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	var err error
	if a.Type, err = ParseVisitType(typ); err != nil {
		return nil, err
	}
	if a.Status, err = ParseStatus(status); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, patient_id, doctor_id, window_id, date, type, status, payment_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.PatientID, a.DoctorID, a.WindowID, a.Date, string(a.Type), string(a.Status), a.PaymentID)
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment a WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET status=$2, updated_at=NOW() WHERE id = $1`, id, string(status))
	return err
}

func (r *appointmentRepoPG) ExistsActive(ctx context.Context, windowID uuid.UUID, date time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM appointment
			WHERE window_id = $1 AND date = $2 AND status <> 'cancelled'
		)`, windowID, date).Scan(&exists)
	return exists, err
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*PatientAppointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+`, u.full_name, d.specialty
		FROM appointment a
		JOIN doctor d ON d.id = a.doctor_id
		JOIN app_user u ON u.id = d.user_id
		WHERE a.patient_id = $1
		ORDER BY a.date DESC, a.created_at DESC
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*PatientAppointment
	for rows.Next() {
		var v PatientAppointment
		a, err := scanAppointment(rows, &v.DoctorName, &v.Specialty)
		if err != nil {
			return nil, 0, err
		}
		v.Appointment = *a
		items = append(items, &v)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, params map[string]string, limit, offset int) ([]*DoctorAppointment, int, error) {
	query := `SELECT ` + apptCols + `, u.full_name, u.phone
		FROM appointment a
		JOIN app_user u ON u.id = a.patient_id
		WHERE a.doctor_id = $1`
	countQuery := `SELECT COUNT(*) FROM appointment a WHERE a.doctor_id = $1`
	args := []interface{}{doctorID}
	idx := 2

	if p, ok := params["status"]; ok {
		query += fmt.Sprintf(` AND a.status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND a.status = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["type"]; ok {
		query += fmt.Sprintf(` AND a.type = $%d`, idx)
		countQuery += fmt.Sprintf(` AND a.type = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["from"]; ok {
		query += fmt.Sprintf(` AND a.date >= $%d`, idx)
		countQuery += fmt.Sprintf(` AND a.date >= $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["to"]; ok {
		query += fmt.Sprintf(` AND a.date <= $%d`, idx)
		countQuery += fmt.Sprintf(` AND a.date <= $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY a.date ASC, a.created_at ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*DoctorAppointment
	for rows.Next() {
		var v DoctorAppointment
		a, err := scanAppointment(rows, &v.PatientName, &v.PatientPhone)
		if err != nil {
			return nil, 0, err
		}
		v.Appointment = *a
		items = append(items, &v)
	}
	return items, total, rows.Err()
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepoPG{pool: pool}
}

func (r *paymentRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (id, amount, transaction_id, status)
		VALUES ($1,$2,$3,$4)`,
		p.ID, p.Amount, p.TransactionID, string(p.Status))
	return err
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var p Payment
	var status string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, amount, transaction_id, status, created_at, updated_at
		FROM payment WHERE id = $1`, id).
		Scan(&p.ID, &p.Amount, &p.TransactionID, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Status, err = ParsePaymentStatus(status); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status PaymentStatus) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE payment SET status=$2, updated_at=NOW() WHERE id = $1`, id, string(status))
	return err
}
