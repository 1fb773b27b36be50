// Package reminder implements the annual checkup reminder cycle: finding
// patients whose last checkup is at least one calendar year old, emailing
// them, and marking them notified so a cycle can be re-run safely.
package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carevault/carevault/internal/domain/patient"
	"github.com/carevault/carevault/internal/platform/notification"
)

// ErrRunInProgress is returned when a cycle is requested while another one is
// still running.
var ErrRunInProgress = errors.New("reminder run already in progress")

// PatientStore is the slice of patient persistence the scheduler needs.
type PatientStore interface {
	ListReminderDue(ctx context.Context, cutoff time.Time) ([]*patient.Patient, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, lastCheckupDate time.Time) (bool, error)
}

// State describes where a patient sits in the reminder lifecycle.
type State string

const (
	// StateUnset: no checkup date recorded, never eligible.
	StateUnset State = "unset"
	// StatePending: checkup recorded less than a year ago.
	StatePending State = "pending"
	// StateEligible: checkup at least a year old and not yet notified.
	StateEligible State = "eligible"
	// StateNotified: reminder already sent for the current checkup date.
	StateNotified State = "notified"
)

// StateOf classifies a patient at the given instant. Eligibility uses a
// calendar year, not 365 days, so Feb 29 anniversaries behave sensibly.
func StateOf(p *patient.Patient, now time.Time) State {
	if p.LastCheckupDate == nil {
		return StateUnset
	}
	if p.ReminderSent {
		return StateNotified
	}
	if p.LastCheckupDate.After(now.AddDate(-1, 0, 0)) {
		return StatePending
	}
	return StateEligible
}

// BatchResult summarizes one reminder cycle.
type BatchResult struct {
	Eligible  int       `json:"eligible"`
	Notified  int       `json:"notified"`
	Failed    int       `json:"failed"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}

// Scheduler runs reminder cycles. It never sends twice for the same checkup
// date: each successful send is persisted with a compare-and-set on the date
// before the next patient is processed.
type Scheduler struct {
	store       PatientStore
	sender      notification.EmailSender
	templates   *notification.TemplateEngine
	log         zerolog.Logger
	sendTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	running bool
}

func NewScheduler(store PatientStore, sender notification.EmailSender, templates *notification.TemplateEngine, sendTimeout time.Duration, log zerolog.Logger) *Scheduler {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	return &Scheduler{
		store:       store,
		sender:      sender,
		templates:   templates,
		log:         log,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}
}

// SetClock overrides the scheduler clock in tests.
func (s *Scheduler) SetClock(now func() time.Time) { s.now = now }

// Cutoff is the eligibility boundary the next cycle will use: checkups on or
// before this instant are a year or more old.
func (s *Scheduler) Cutoff() time.Time { return s.now().AddDate(-1, 0, 0) }

func (s *Scheduler) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// RunCycle executes one reminder pass. Only one cycle runs at a time; a
// concurrent call fails fast with ErrRunInProgress.
func (s *Scheduler) RunCycle(ctx context.Context) (*BatchResult, error) {
	if !s.tryAcquire() {
		return nil, ErrRunInProgress
	}
	defer s.release()

	start := s.now()
	cutoff := s.Cutoff()

	due, err := s.store.ListReminderDue(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Eligible: len(due), StartedAt: start}
	for _, p := range due {
		if err := ctx.Err(); err != nil {
			result.Duration = s.now().Sub(start).String()
			return result, err
		}
		if s.notify(ctx, p) {
			result.Notified++
		} else {
			result.Failed++
		}
	}

	result.Duration = s.now().Sub(start).String()
	s.log.Info().
		Int("eligible", result.Eligible).
		Int("notified", result.Notified).
		Int("failed", result.Failed).
		Msg("reminder cycle finished")
	return result, nil
}

// notify sends one reminder and persists the flag. A slow mail relay cannot
// stall the whole batch: each send gets its own deadline.
func (s *Scheduler) notify(ctx context.Context, p *patient.Patient) bool {
	subject, body, err := s.templates.Render("checkup-reminder", map[string]string{
		"patient_name":      p.FirstName + " " + p.LastName,
		"last_checkup_date": p.LastCheckupDate.Format("2006-01-02"),
	})
	if err != nil {
		s.log.Error().Err(err).Stringer("patient_id", p.ID).Msg("render reminder")
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.sender.SendEmail(sendCtx, p.NotifyAddress(), subject, body); err != nil {
		s.log.Error().Err(err).Stringer("patient_id", p.ID).Msg("send reminder")
		return false
	}

	// The flag only sticks if the checkup date is unchanged since the batch
	// was listed; a patient who logged a new checkup mid-run starts a fresh
	// cycle instead.
	ok, err := s.store.MarkReminderSent(ctx, p.ID, *p.LastCheckupDate)
	if err != nil {
		s.log.Error().Err(err).Stringer("patient_id", p.ID).Msg("mark reminder sent")
		return false
	}
	if !ok {
		s.log.Warn().Stringer("patient_id", p.ID).Msg("checkup date changed during run, reminder flag not set")
		return false
	}
	return true
}

// Run executes a cycle every interval until the context is cancelled. An
// interval of zero disables the loop.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunCycle(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
				s.log.Error().Err(err).Msg("reminder cycle")
			}
		}
	}
}
