package feedback

import (
	"context"
	"errors"

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

const feedbackCols = `id, patient_id, subject, message, reply, replied_by, replied_at, created_at`

func scanFeedback(row pgx.Row) (*Feedback, error) {
	var f Feedback
	err := row.Scan(&f.ID, &f.PatientID, &f.Subject, &f.Message,
		&f.Reply, &f.RepliedBy, &f.RepliedAt, &f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &f, err
}

func (r *repoPG) Create(ctx context.Context, f *Feedback) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO feedback (id, patient_id, subject, message)
		VALUES ($1,$2,$3,$4)`,
		f.ID, f.PatientID, f.Subject, f.Message)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Feedback, error) {
	return scanFeedback(r.conn(ctx).QueryRow(ctx,
		`SELECT `+feedbackCols+` FROM feedback WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Feedback, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM feedback WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+feedbackCols+` FROM feedback WHERE patient_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collect(rows, total)
}

func (r *repoPG) ListAll(ctx context.Context, limit, offset int) ([]*Feedback, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT f.id, f.patient_id, f.subject, f.message, f.reply, f.replied_by, f.replied_at, f.created_at,
		       COALESCE(p.first_name || ' ' || p.last_name, '')
		FROM feedback f
		LEFT JOIN patients p ON p.id = f.patient_id
		ORDER BY f.created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Feedback
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.PatientID, &f.Subject, &f.Message,
			&f.Reply, &f.RepliedBy, &f.RepliedAt, &f.CreatedAt, &f.PatientName); err != nil {
			return nil, 0, err
		}
		items = append(items, &f)
	}
	return items, total, rows.Err()
}

func collect(rows pgx.Rows, total int) ([]*Feedback, int, error) {
	var items []*Feedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, f)
	}
	return items, total, rows.Err()
}

func (r *repoPG) SetReply(ctx context.Context, id uuid.UUID, reply string, adminID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE feedback SET reply = $2, replied_by = $3, replied_at = NOW()
		WHERE id = $1 AND reply IS NULL`, id, reply, adminID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
