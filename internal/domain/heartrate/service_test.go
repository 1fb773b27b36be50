package heartrate

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/platform/auth"
)

type mockRepo struct {
	mu       sync.Mutex
	readings []*Reading
}

func (m *mockRepo) Create(_ context.Context, r *Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now()
	cp := *r
	m.readings = append(m.readings, &cp)
	return nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, from, to *time.Time, limit, offset int) ([]*Reading, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*Reading
	for _, r := range m.readings {
		if r.PatientID != patientID {
			continue
		}
		if from != nil && r.RecordedAt.Before(*from) {
			continue
		}
		if to != nil && r.RecordedAt.After(*to) {
			continue
		}
		cp := *r
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].RecordedAt.Before(matched[j].RecordedAt) })
	total := len(matched)
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], total, nil
}

func testService() (*Service, *mockRepo) {
	repo := &mockRepo{}
	svc := NewService(repo)
	svc.SetClock(func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) })
	return svc, repo
}

func TestAdd_ValidReading(t *testing.T) {
	svc, _ := testService()
	r, err := svc.Add(context.Background(), uuid.New(), 72, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.BPM != 72 {
		t.Errorf("unexpected bpm %d", r.BPM)
	}
	// Zero recordedAt defaults to the clock.
	if !r.RecordedAt.Equal(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected recorded_at %v", r.RecordedAt)
	}
}

func TestAdd_RejectsOutOfRange(t *testing.T) {
	svc, _ := testService()
	for _, bpm := range []int{0, 19, 301, -5} {
		if _, err := svc.Add(context.Background(), uuid.New(), bpm, time.Time{}); err == nil {
			t.Errorf("bpm %d: expected validation error", bpm)
		}
	}
	for _, bpm := range []int{20, 300, 60} {
		if _, err := svc.Add(context.Background(), uuid.New(), bpm, time.Time{}); err != nil {
			t.Errorf("bpm %d: unexpected error %v", bpm, err)
		}
	}
}

func TestAdd_RejectsFutureTimestamp(t *testing.T) {
	svc, _ := testService()
	future := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Add(context.Background(), uuid.New(), 70, future); err == nil {
		t.Error("expected error for future recorded_at")
	}
}

func TestHistory_ChronologicalOrder(t *testing.T) {
	svc, _ := testService()
	pid := uuid.New()
	principal := auth.Principal{ID: pid, Role: auth.RolePatient}

	// Insert out of order.
	times := []time.Time{
		time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC),
	}
	for i, ts := range times {
		if _, err := svc.Add(context.Background(), pid, 60+i, ts); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	items, total, err := svc.History(context.Background(), principal, pid, nil, nil, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 readings, got %d", total)
	}
	for i := 1; i < len(items); i++ {
		if items[i].RecordedAt.Before(items[i-1].RecordedAt) {
			t.Errorf("history not in chronological order: %v before %v",
				items[i].RecordedAt, items[i-1].RecordedAt)
		}
	}
}

func TestHistory_OtherPatientForbidden(t *testing.T) {
	svc, _ := testService()
	principal := auth.Principal{ID: uuid.New(), Role: auth.RolePatient}
	if _, _, err := svc.History(context.Background(), principal, uuid.New(), nil, nil, 20, 0); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestHistory_AdminAllowed(t *testing.T) {
	svc, _ := testService()
	pid := uuid.New()
	svc.Add(context.Background(), pid, 70, time.Time{})

	adm := auth.Principal{ID: uuid.New(), Role: auth.RoleAdmin}
	_, total, err := svc.History(context.Background(), adm, pid, nil, nil, 20, 0)
	if err != nil || total != 1 {
		t.Errorf("admin should read any history, got %d %v", total, err)
	}
}

func TestHistory_RangeFilter(t *testing.T) {
	svc, _ := testService()
	pid := uuid.New()
	principal := auth.Principal{ID: pid, Role: auth.RolePatient}

	for day := 1; day <= 5; day++ {
		svc.Add(context.Background(), pid, 70, time.Date(2025, 5, day, 8, 0, 0, 0, time.UTC))
	}

	from := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 5, 4, 23, 0, 0, 0, time.UTC)
	_, total, err := svc.History(context.Background(), principal, pid, &from, &to, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 readings in range, got %d", total)
	}

	if _, _, err := svc.History(context.Background(), principal, pid, &to, &from, 20, 0); err == nil {
		t.Error("expected error for inverted range")
	}
}
