package patient

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carevault/carevault/internal/platform/db"
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
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, first_name, last_name, email, password_hash, date_of_birth, gender,
	phone, address, allergies, chronic_conditions, profile_picture, status,
	last_checkup_date, reminder_email, reminder_sent, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PasswordHash,
		&p.DateOfBirth, &p.Gender, &p.Phone, &p.Address, &p.Allergies,
		&p.ChronicConditions, &p.ProfilePicture, &p.Status, &p.LastCheckupDate,
		&p.ReminderEmail, &p.ReminderSent, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, email, password_hash,
			date_of_birth, gender, phone, address, allergies, chronic_conditions, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.FirstName, p.LastName, p.Email, p.PasswordHash,
		p.DateOfBirth, p.Gender, p.Phone, p.Address, p.Allergies, p.ChronicConditions, p.Status)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE email = $1`, email))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET first_name=$2, last_name=$3, date_of_birth=$4, gender=$5,
			phone=$6, address=$7, allergies=$8, chronic_conditions=$9,
			profile_picture=$10, reminder_email=$11, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.Phone, p.Address, p.Allergies, p.ChronicConditions,
		p.ProfilePicture, p.ReminderEmail)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE patients SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Patient, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + patientCols + ` FROM patients` + where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Stats(ctx context.Context, reminderCutoff time.Time) (*Stats, error) {
	var s Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'deactivated'),
			COUNT(*) FILTER (WHERE status = 'active' AND reminder_sent = FALSE
				AND last_checkup_date IS NOT NULL AND last_checkup_date <= $1)
		FROM patients`, reminderCutoff).
		Scan(&s.Total, &s.Active, &s.Deactivated, &s.ReminderDue)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repoPG) SetCheckupDate(ctx context.Context, id uuid.UUID, date time.Time, reminderEmail *string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients
		SET last_checkup_date = $2,
			reminder_email = COALESCE($3, reminder_email),
			reminder_sent = FALSE,
			updated_at = NOW()
		WHERE id = $1`, id, date, reminderEmail)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListReminderDue(ctx context.Context, cutoff time.Time) ([]*Patient, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+patientCols+` FROM patients
		WHERE status = 'active'
		  AND reminder_sent = FALSE
		  AND last_checkup_date IS NOT NULL
		  AND last_checkup_date <= $1
		ORDER BY last_checkup_date`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repoPG) MarkReminderSent(ctx context.Context, id uuid.UUID, lastCheckupDate time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET reminder_sent = TRUE, updated_at = NOW()
		WHERE id = $1 AND reminder_sent = FALSE AND last_checkup_date = $2`,
		id, lastCheckupDate)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
