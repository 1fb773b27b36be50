package patient

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a patient account. Deactivated patients
// keep their data but cannot log in.
type Status string

const (
	StatusActive      Status = "active"
	StatusDeactivated Status = "deactivated"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDeactivated
}

var (
	ErrNotFound           = errors.New("patient not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDeactivated        = errors.New("account is deactivated")
)

// Patient maps to the patients table.
type Patient struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	FirstName         string     `db:"first_name" json:"first_name"`
	LastName          string     `db:"last_name" json:"last_name"`
	Email             string     `db:"email" json:"email"`
	PasswordHash      string     `db:"password_hash" json:"-"`
	DateOfBirth       *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender            *string    `db:"gender" json:"gender,omitempty"`
	Phone             *string    `db:"phone" json:"phone,omitempty"`
	Address           *string    `db:"address" json:"address,omitempty"`
	Allergies         []string   `db:"allergies" json:"allergies"`
	ChronicConditions []string   `db:"chronic_conditions" json:"chronic_conditions"`
	ProfilePicture    *string    `db:"profile_picture" json:"profile_picture,omitempty"`
	Status            Status     `db:"status" json:"status"`
	LastCheckupDate   *time.Time `db:"last_checkup_date" json:"last_checkup_date,omitempty"`
	ReminderEmail     *string    `db:"reminder_email" json:"reminder_email,omitempty"`
	ReminderSent      bool       `db:"reminder_sent" json:"reminder_sent"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// Stats summarizes the patient population for the admin dashboard.
type Stats struct {
	Total       int `json:"total"`
	Active      int `json:"active"`
	Deactivated int `json:"deactivated"`
	ReminderDue int `json:"reminder_due"`
}
