package patient

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/internal/platform/notification"
	"github.com/carevault/carevault/pkg/validate"
)

type Service struct {
	repo      Repository
	codec     *auth.Codec
	sender    notification.EmailSender
	templates *notification.TemplateEngine
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, codec *auth.Codec, sender notification.EmailSender, templates *notification.TemplateEngine, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		codec:     codec,
		sender:    sender,
		templates: templates,
		log:       log,
		now:       time.Now,
	}
}

// SetClock overrides the service clock in tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// RegisterInput carries the fields accepted at signup.
type RegisterInput struct {
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	Password          string     `json:"password"`
	DateOfBirth       *time.Time `json:"-"`
	Gender            *string    `json:"gender"`
	Phone             *string    `json:"phone"`
	Address           *string    `json:"address"`
	Allergies         []string   `json:"allergies"`
	ChronicConditions []string   `json:"chronic_conditions"`
}

func (in *RegisterInput) validate() error {
	if strings.TrimSpace(in.FirstName) == "" {
		return validate.Errorf("first_name is required")
	}
	if strings.TrimSpace(in.LastName) == "" {
		return validate.Errorf("last_name is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return validate.Errorf("invalid email address")
	}
	if len(in.Password) < 8 {
		return validate.Errorf("password must be at least 8 characters")
	}
	return nil
}

// Register creates a patient account and returns it with a signed token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Patient, string, error) {
	if err := in.validate(); err != nil {
		return nil, "", err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if err != ErrNotFound {
		return nil, "", err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	p := &Patient{
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		Email:             email,
		PasswordHash:      hash,
		DateOfBirth:       in.DateOfBirth,
		Gender:            in.Gender,
		Phone:             in.Phone,
		Address:           in.Address,
		Allergies:         emptyIfNil(in.Allergies),
		ChronicConditions: emptyIfNil(in.ChronicConditions),
		Status:            StatusActive,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, "", err
	}

	token, err := s.codec.Issue(p.ID, auth.RolePatient)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.sendTemplated(ctx, p.Email, "welcome", map[string]string{
		"patient_name": p.FirstName + " " + p.LastName,
	})

	return p, token, nil
}

// Login verifies credentials and returns the patient with a signed token.
// Deactivated accounts cannot log in.
func (s *Service) Login(ctx context.Context, email, password string) (*Patient, string, error) {
	p, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == ErrNotFound {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(p.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	if p.Status == StatusDeactivated {
		return nil, "", ErrDeactivated
	}

	token, err := s.codec.Issue(p.ID, auth.RolePatient)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return p, token, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateProfileInput carries optional profile changes; nil fields are left
// unchanged.
type UpdateProfileInput struct {
	FirstName         *string    `json:"first_name"`
	LastName          *string    `json:"last_name"`
	DateOfBirth       *time.Time `json:"-"`
	Gender            *string    `json:"gender"`
	Phone             *string    `json:"phone"`
	Address           *string    `json:"address"`
	Allergies         []string   `json:"allergies"`
	ChronicConditions []string   `json:"chronic_conditions"`
	ReminderEmail     *string    `json:"reminder_email"`
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		if strings.TrimSpace(*in.FirstName) == "" {
			return nil, validate.Errorf("first_name cannot be empty")
		}
		p.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		if strings.TrimSpace(*in.LastName) == "" {
			return nil, validate.Errorf("last_name cannot be empty")
		}
		p.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.DateOfBirth != nil {
		p.DateOfBirth = in.DateOfBirth
	}
	if in.Gender != nil {
		p.Gender = in.Gender
	}
	if in.Phone != nil {
		p.Phone = in.Phone
	}
	if in.Address != nil {
		p.Address = in.Address
	}
	if in.Allergies != nil {
		p.Allergies = in.Allergies
	}
	if in.ChronicConditions != nil {
		p.ChronicConditions = in.ChronicConditions
	}
	if in.ReminderEmail != nil {
		if *in.ReminderEmail != "" {
			if _, err := mail.ParseAddress(*in.ReminderEmail); err != nil {
				return nil, validate.Errorf("invalid reminder_email address")
			}
		}
		p.ReminderEmail = in.ReminderEmail
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetProfilePicture records the blob key of an uploaded picture.
func (s *Service) SetProfilePicture(ctx context.Context, id uuid.UUID, key string) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.ProfilePicture = &key
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// SetCheckupDate records a completed checkup. The reminder flag resets so the
// next annual cycle notifies again, and a confirmation email goes to the
// reminder address (falling back to the account email).
func (s *Service) SetCheckupDate(ctx context.Context, id uuid.UUID, date time.Time, reminderEmail *string) (*Patient, error) {
	if date.After(s.now()) {
		return nil, validate.Errorf("checkup date cannot be in the future")
	}
	if reminderEmail != nil && *reminderEmail != "" {
		if _, err := mail.ParseAddress(*reminderEmail); err != nil {
			return nil, validate.Errorf("invalid reminder_email address")
		}
	}

	if err := s.repo.SetCheckupDate(ctx, id, date, reminderEmail); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.sendTemplated(ctx, p.NotifyAddress(), "checkup-confirmation", map[string]string{
		"patient_name": p.FirstName + " " + p.LastName,
		"checkup_date": date.Format("2006-01-02"),
	})

	return p, nil
}

// NotifyAddress is where reminder mail goes: the dedicated reminder address
// when set, otherwise the account email.
func (p *Patient) NotifyAddress() string {
	if p.ReminderEmail != nil && *p.ReminderEmail != "" {
		return *p.ReminderEmail
	}
	return p.Email
}

// -- Admin-facing operations --

func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]*Patient, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, validate.Errorf("invalid status: %s", status)
	}
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Patient, error) {
	if !status.Valid() {
		return nil, validate.Errorf("invalid status: %s", status)
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Stats summarizes the population, counting reminder-due patients with the
// same calendar-year cutoff the reminder cycle uses.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx, s.now().AddDate(-1, 0, 0))
}

// sendTemplated delivers a templated email best-effort; delivery failures are
// logged, not returned.
func (s *Service) sendTemplated(ctx context.Context, to, templateID string, data map[string]string) {
	subject, body, err := s.templates.Render(templateID, data)
	if err != nil {
		s.log.Error().Err(err).Str("template", templateID).Msg("render email template")
		return
	}
	if err := s.sender.SendEmail(ctx, to, subject, body); err != nil {
		s.log.Error().Err(err).Str("to", to).Str("template", templateID).Msg("send email")
	}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
