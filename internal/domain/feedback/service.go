package feedback

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/carevault/carevault/pkg/validate"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit records a patient's feedback entry.
func (s *Service) Submit(ctx context.Context, patientID uuid.UUID, subject, message string) (*Feedback, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, validate.Errorf("subject is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, validate.Errorf("message is required")
	}

	f := &Feedback{
		PatientID: patientID,
		Subject:   strings.TrimSpace(subject),
		Message:   strings.TrimSpace(message),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// ListForPatient returns a patient's own feedback entries.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Feedback, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// ListAll returns every feedback entry for the admin inbox.
func (s *Service) ListAll(ctx context.Context, limit, offset int) ([]*Feedback, int, error) {
	return s.repo.ListAll(ctx, limit, offset)
}

// Reply attaches an admin reply. Each entry takes exactly one reply.
func (s *Service) Reply(ctx context.Context, id uuid.UUID, reply string, adminID uuid.UUID) (*Feedback, error) {
	if strings.TrimSpace(reply) == "" {
		return nil, validate.Errorf("reply is required")
	}

	ok, err := s.repo.SetReply(ctx, id, strings.TrimSpace(reply), adminID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Either missing or already replied; GetByID disambiguates.
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyReplied
	}
	return s.repo.GetByID(ctx, id)
}
