package report

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

const reportCols = `id, patient_id, title, file_name, file_key, content_type, size_bytes, uploaded_at`

func scanReport(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.PatientID, &rep.Title, &rep.FileName, &rep.FileKey,
		&rep.ContentType, &rep.SizeBytes, &rep.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return &rep, err
}

func (r *repoPG) Create(ctx context.Context, rep *Report) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO reports (id, patient_id, title, file_name, file_key, content_type, size_bytes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rep.ID, rep.PatientID, rep.Title, rep.FileName, rep.FileKey, rep.ContentType, rep.SizeBytes)
	return err
}

// CreateWithComment runs both inserts in one transaction so a report never
// appears without the comment it was uploaded with.
func (r *repoPG) CreateWithComment(ctx context.Context, rep *Report, c *Comment) error {
	return db.InTx(ctx, r.pool, func(txCtx context.Context) error {
		if err := r.Create(txCtx, rep); err != nil {
			return err
		}
		c.ReportID = rep.ID
		return r.AddComment(txCtx, c)
	})
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	return scanReport(r.conn(ctx).QueryRow(ctx,
		`SELECT `+reportCols+` FROM reports WHERE id = $1`, id))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Report, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM reports WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+reportCols+` FROM reports WHERE patient_id = $1
		ORDER BY uploaded_at DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rep)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM reports`).Scan(&total)
	return total, err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) AddComment(ctx context.Context, c *Comment) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO report_comments (id, report_id, author_id, author_role, body)
		VALUES ($1,$2,$3,$4,$5)`,
		c.ID, c.ReportID, c.AuthorID, c.AuthorRole, c.Body)
	return err
}

func (r *repoPG) ListComments(ctx context.Context, reportID uuid.UUID) ([]*Comment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, report_id, author_id, author_role, body, created_at
		FROM report_comments WHERE report_id = $1 ORDER BY created_at`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.ReportID, &c.AuthorID, &c.AuthorRole, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, rows.Err()
}
