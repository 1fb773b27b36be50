package heartrate

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/pkg/validate"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetClock overrides the service clock in tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Add records a reading. A zero recordedAt means "now"; future timestamps and
// implausible values are rejected.
func (s *Service) Add(ctx context.Context, patientID uuid.UUID, bpm int, recordedAt time.Time) (*Reading, error) {
	if bpm < MinBPM || bpm > MaxBPM {
		return nil, validate.Errorf("bpm must be between %d and %d", MinBPM, MaxBPM)
	}
	if recordedAt.IsZero() {
		recordedAt = s.now()
	}
	if recordedAt.After(s.now()) {
		return nil, validate.Errorf("recorded_at cannot be in the future")
	}

	r := &Reading{
		PatientID:  patientID,
		BPM:        bpm,
		RecordedAt: recordedAt,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// History returns a patient's readings oldest first. Patients may only read
// their own history; admins may read anyone's.
func (s *Service) History(ctx context.Context, p auth.Principal, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Reading, int, error) {
	if p.Role != auth.RoleAdmin && p.ID != patientID {
		return nil, 0, ErrForbidden
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, 0, validate.Errorf("from must not be after to")
	}
	return s.repo.ListByPatient(ctx, patientID, from, to, limit, offset)
}
