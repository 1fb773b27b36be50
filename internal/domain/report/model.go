package report

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("report not found")
	ErrForbidden = errors.New("not allowed to access this report")
)

// Report maps to the reports table. The file itself lives in the blob store
// under FileKey.
type Report struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	Title       string    `db:"title" json:"title"`
	FileName    string    `db:"file_name" json:"file_name"`
	FileKey     string    `db:"file_key" json:"-"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// Comment maps to the report_comments table. Both patients and admins can
// comment on a report.
type Comment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ReportID   uuid.UUID `db:"report_id" json:"report_id"`
	AuthorID   uuid.UUID `db:"author_id" json:"author_id"`
	AuthorRole string    `db:"author_role" json:"author_role"`
	Body       string    `db:"body" json:"body"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
