package reminder

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carevault/carevault/internal/domain/patient"
	"github.com/carevault/carevault/internal/platform/notification"
)

type mockStore struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*patient.Patient
	listErr  error
	markErr  error
}

func newMockStore() *mockStore {
	return &mockStore{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (m *mockStore) add(p *patient.Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients[p.ID] = p
}

func (m *mockStore) ListReminderDue(_ context.Context, cutoff time.Time) ([]*patient.Patient, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*patient.Patient
	for _, p := range m.patients {
		if p.Status != patient.StatusActive || p.ReminderSent || p.LastCheckupDate == nil {
			continue
		}
		if p.LastCheckupDate.After(cutoff) {
			continue
		}
		cp := *p
		due = append(due, &cp)
	}
	return due, nil
}

func (m *mockStore) MarkReminderSent(_ context.Context, id uuid.UUID, lastCheckupDate time.Time) (bool, error) {
	if m.markErr != nil {
		return false, m.markErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok || p.ReminderSent || p.LastCheckupDate == nil || !p.LastCheckupDate.Equal(lastCheckupDate) {
		return false, nil
	}
	p.ReminderSent = true
	return true, nil
}

var testNow = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

func testScheduler(store PatientStore, sender notification.EmailSender) *Scheduler {
	s := NewScheduler(store, sender, notification.NewTemplateEngine(), time.Second, zerolog.New(io.Discard))
	s.SetClock(func() time.Time { return testNow })
	return s
}

func activePatient(email string, checkup *time.Time, reminded bool) *patient.Patient {
	p := &patient.Patient{
		ID:              uuid.New(),
		FirstName:       "Pat",
		LastName:        "Example",
		Email:           email,
		Status:          patient.StatusActive,
		LastCheckupDate: checkup,
		ReminderSent:    reminded,
	}
	return p
}

func datePtr(t time.Time) *time.Time { return &t }

func TestStateOf(t *testing.T) {
	overYear := testNow.AddDate(-1, 0, -1)
	exactlyYear := testNow.AddDate(-1, 0, 0)
	recent := testNow.AddDate(0, -3, 0)

	cases := []struct {
		name string
		p    *patient.Patient
		want State
	}{
		{"no checkup date", activePatient("a@x.com", nil, false), StateUnset},
		{"recent checkup", activePatient("a@x.com", &recent, false), StatePending},
		{"checkup over a year old", activePatient("a@x.com", &overYear, false), StateEligible},
		{"checkup exactly a year old", activePatient("a@x.com", &exactlyYear, false), StateEligible},
		{"already notified", activePatient("a@x.com", &overYear, true), StateNotified},
	}
	for _, tc := range cases {
		if got := StateOf(tc.p, testNow); got != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.name, tc.want, got)
		}
	}
}

func TestRunCycle_NotifiesOnlyEligible(t *testing.T) {
	store := newMockStore()
	sender := &notification.MockEmailSender{}
	s := testScheduler(store, sender)

	eligible := activePatient("due@example.com", datePtr(testNow.AddDate(-1, -1, 0)), false)
	store.add(eligible)
	store.add(activePatient("recent@example.com", datePtr(testNow.AddDate(0, -2, 0)), false))
	store.add(activePatient("unset@example.com", nil, false))
	store.add(activePatient("done@example.com", datePtr(testNow.AddDate(-2, 0, 0)), true))

	deactivated := activePatient("gone@example.com", datePtr(testNow.AddDate(-2, 0, 0)), false)
	deactivated.Status = patient.StatusDeactivated
	store.add(deactivated)

	result, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible != 1 || result.Notified != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	calls := sender.Calls()
	if len(calls) != 1 || calls[0].To != "due@example.com" {
		t.Fatalf("expected one reminder to due@example.com, got %+v", calls)
	}
	if !strings.Contains(calls[0].Body, eligible.LastCheckupDate.Format("2006-01-02")) {
		t.Errorf("reminder should cite the last checkup date, got %q", calls[0].Body)
	}
	if !store.patients[eligible.ID].ReminderSent {
		t.Error("reminder flag must be persisted")
	}
}

func TestRunCycle_Idempotent(t *testing.T) {
	store := newMockStore()
	sender := &notification.MockEmailSender{}
	s := testScheduler(store, sender)

	store.add(activePatient("due@example.com", datePtr(testNow.AddDate(-1, -1, 0)), false))

	if _, err := s.RunCycle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Eligible != 0 || second.Notified != 0 {
		t.Errorf("second cycle must be a no-op, got %+v", second)
	}
	if len(sender.Calls()) != 1 {
		t.Errorf("expected exactly one email across both cycles, got %d", len(sender.Calls()))
	}
}

func TestRunCycle_CalendarYearBoundary(t *testing.T) {
	store := newMockStore()
	sender := &notification.MockEmailSender{}
	s := testScheduler(store, sender)

	// One day short of a year: not yet eligible.
	store.add(activePatient("soon@example.com", datePtr(testNow.AddDate(-1, 0, 1)), false))
	// Exactly one calendar year: eligible.
	store.add(activePatient("exact@example.com", datePtr(testNow.AddDate(-1, 0, 0)), false))

	result, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Eligible != 1 || result.Notified != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if calls := sender.Calls(); len(calls) != 1 || calls[0].To != "exact@example.com" {
		t.Errorf("expected reminder only for the one-year-old checkup, got %+v", calls)
	}
}

func TestRunCycle_SendFailureLeavesFlagClear(t *testing.T) {
	store := newMockStore()
	sender := &notification.MockEmailSender{ShouldFail: true, FailError: "relay down"}
	s := testScheduler(store, sender)

	p := activePatient("due@example.com", datePtr(testNow.AddDate(-2, 0, 0)), false)
	store.add(p)

	result, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Failed != 1 || result.Notified != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if store.patients[p.ID].ReminderSent {
		t.Error("failed send must not set the reminder flag")
	}

	// Relay recovers; the patient is picked up again.
	sender.ShouldFail = false
	result, err = s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Notified != 1 {
		t.Errorf("expected retry to succeed, got %+v", result)
	}
}

func TestRunCycle_NewCheckupDateStartsFreshCycle(t *testing.T) {
	store := newMockStore()
	sender := &notification.MockEmailSender{}
	s := testScheduler(store, sender)

	p := activePatient("due@example.com", datePtr(testNow.AddDate(-1, -2, 0)), false)
	store.add(p)
	s.RunCycle(context.Background())

	// The patient logs a new checkup: flag clears, date moves forward.
	store.mu.Lock()
	store.patients[p.ID].LastCheckupDate = datePtr(testNow.AddDate(0, -1, 0))
	store.patients[p.ID].ReminderSent = false
	store.mu.Unlock()

	// Not yet eligible again.
	result, _ := s.RunCycle(context.Background())
	if result.Eligible != 0 {
		t.Errorf("recent checkup must not be eligible, got %+v", result)
	}

	// A year later the fresh cycle fires.
	s.SetClock(func() time.Time { return testNow.AddDate(1, 0, 0) })
	result, _ = s.RunCycle(context.Background())
	if result.Notified != 1 {
		t.Errorf("expected a new reminder for the new date, got %+v", result)
	}
	if len(sender.Calls()) != 2 {
		t.Errorf("expected two reminders overall, got %d", len(sender.Calls()))
	}
}

func TestRunCycle_StaleDateNotMarked(t *testing.T) {
	store := newMockStore()
	sender := &notification.MockEmailSender{}
	_ = testScheduler(store, sender)

	p := activePatient("due@example.com", datePtr(testNow.AddDate(-2, 0, 0)), false)
	store.add(p)

	// Simulate the patient logging a new checkup between listing and marking:
	// the stored date no longer matches the one the batch saw.
	store.mu.Lock()
	listed := *store.patients[p.ID].LastCheckupDate
	store.patients[p.ID].LastCheckupDate = datePtr(testNow.AddDate(0, -1, 0))
	store.mu.Unlock()

	ok, err := store.MarkReminderSent(context.Background(), p.ID, listed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("mark must fail when the checkup date changed")
	}
	if store.patients[p.ID].ReminderSent {
		t.Error("stale mark must not set the flag")
	}
}

// blockingSender parks until its release channel closes or the context ends.
type blockingSender struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingSender) SendEmail(ctx context.Context, _, _, _ string) error {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestRunCycle_ConcurrentRunRejected(t *testing.T) {
	store := newMockStore()
	sender := &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
	s := testScheduler(store, sender)

	store.add(activePatient("due@example.com", datePtr(testNow.AddDate(-2, 0, 0)), false))

	done := make(chan struct{})
	go func() {
		s.RunCycle(context.Background())
		close(done)
	}()

	<-sender.started
	if _, err := s.RunCycle(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}

	close(sender.release)
	<-done

	// The lock is free again after the first run finishes.
	if _, err := s.RunCycle(context.Background()); err != nil {
		t.Errorf("expected lock released, got %v", err)
	}
}

func TestRunCycle_SlowSendTimesOut(t *testing.T) {
	store := newMockStore()
	// Never released: every send waits for its per-patient deadline.
	sender := &blockingSender{started: make(chan struct{}), release: make(chan struct{})}
	s := NewScheduler(store, sender, notification.NewTemplateEngine(), 20*time.Millisecond, zerolog.New(io.Discard))
	s.SetClock(func() time.Time { return testNow })

	p := activePatient("slow@example.com", datePtr(testNow.AddDate(-2, 0, 0)), false)
	store.add(p)

	start := time.Now()
	result, err := s.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("cycle blocked for %v despite per-send timeout", elapsed)
	}
	if result.Failed != 1 || result.Notified != 0 {
		t.Errorf("unexpected result %+v", result)
	}
	if store.patients[p.ID].ReminderSent {
		t.Error("timed-out send must not set the flag")
	}
}

func TestCutoff_UsesInjectedClock(t *testing.T) {
	s := testScheduler(newMockStore(), &notification.MockEmailSender{})
	want := testNow.AddDate(-1, 0, 0)
	if got := s.Cutoff(); !got.Equal(want) {
		t.Errorf("expected cutoff %v, got %v", want, got)
	}
}
