package admin

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/domain/patient"
	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/pkg/validate"
)

type Service struct {
	repo  Repository
	codec *auth.Codec

	patients PatientStatsSource
	reports  ReportCounter
}

func NewService(repo Repository, codec *auth.Codec) *Service {
	return &Service{repo: repo, codec: codec}
}

// AdminExists implements auth.AdminFinder so the admin gate can re-check the
// account on every request.
func (s *Service) AdminExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// RegisterInput carries the fields accepted at admin signup.
type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
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

// Register creates an admin account and returns it with a signed token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Admin, string, error) {
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

	a := &Admin{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, "", err
	}

	token, err := s.codec.Issue(a.ID, auth.RoleAdmin)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return a, token, nil
}

// Login verifies credentials and returns the admin with a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*Admin, string, error) {
	a, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if err == ErrNotFound {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(a.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.codec.Issue(a.ID, auth.RoleAdmin)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return a, token, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Admin, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// PatientStatsSource and ReportCounter are the slices of the patient and
// report services the dashboard reads. They are wired with a setter at
// startup so the admin package does not construct those services itself.
type PatientStatsSource interface {
	Stats(ctx context.Context) (*patient.Stats, error)
}

type ReportCounter interface {
	Count(ctx context.Context) (int, error)
}

// Dashboard summarizes the system for the admin landing page.
type Dashboard struct {
	TotalPatients       int `json:"total_patients"`
	ActivePatients      int `json:"active_patients"`
	DeactivatedPatients int `json:"deactivated_patients"`
	RemindersDue        int `json:"reminders_due"`
	TotalReports        int `json:"total_reports"`
}

func (s *Service) SetDashboardSources(patients PatientStatsSource, reports ReportCounter) {
	s.patients = patients
	s.reports = reports
}

func (s *Service) DashboardStats(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}
	if s.patients != nil {
		stats, err := s.patients.Stats(ctx)
		if err != nil {
			return nil, err
		}
		d.TotalPatients = stats.Total
		d.ActivePatients = stats.Active
		d.DeactivatedPatients = stats.Deactivated
		d.RemindersDue = stats.ReminderDue
	}
	if s.reports != nil {
		total, err := s.reports.Count(ctx)
		if err != nil {
			return nil, err
		}
		d.TotalReports = total
	}
	return d, nil
}
