package feedback

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("feedback not found")
	ErrAlreadyReplied = errors.New("feedback already has a reply")
)

// Feedback maps to the feedback table. Patients submit entries; an admin may
// attach a single reply.
type Feedback struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	PatientID uuid.UUID  `db:"patient_id" json:"patient_id"`
	Subject   string     `db:"subject" json:"subject"`
	Message   string     `db:"message" json:"message"`
	Reply     *string    `db:"reply" json:"reply,omitempty"`
	RepliedBy *uuid.UUID `db:"replied_by" json:"replied_by,omitempty"`
	RepliedAt *time.Time `db:"replied_at" json:"replied_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`

	// PatientName is joined for the admin listing, not stored.
	PatientName string `db:"-" json:"patient_name,omitempty"`
}
