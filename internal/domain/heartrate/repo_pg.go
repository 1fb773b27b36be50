package heartrate

import (
	"context"
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

func (r *repoPG) Create(ctx context.Context, reading *Reading) error {
	if reading.ID == uuid.Nil {
		reading.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO heart_rates (id, patient_id, bpm, recorded_at)
		VALUES ($1,$2,$3,$4)`,
		reading.ID, reading.PatientID, reading.BPM, reading.RecordedAt)
	return err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Reading, int, error) {
	where := ` WHERE patient_id = $1`
	args := []interface{}{patientID}
	if from != nil {
		args = append(args, *from)
		where += ` AND recorded_at >= $` + strconv.Itoa(len(args))
	}
	if to != nil {
		args = append(args, *to)
		where += ` AND recorded_at <= $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM heart_rates`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, patient_id, bpm, recorded_at, created_at FROM heart_rates` + where +
		` ORDER BY recorded_at LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Reading
	for rows.Next() {
		var reading Reading
		if err := rows.Scan(&reading.ID, &reading.PatientID, &reading.BPM,
			&reading.RecordedAt, &reading.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &reading)
	}
	return items, total, rows.Err()
}
