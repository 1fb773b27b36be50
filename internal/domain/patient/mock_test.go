package patient

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockRepo is a map-backed Repository used by the package tests.
type mockRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*Patient
	err      error
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	cp.UpdatedAt = time.Now()
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = status
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return ErrNotFound
	}
	delete(m.patients, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, status Status, limit, offset int) ([]*Patient, int, error) {
	if m.err != nil {
		return nil, 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*Patient
	for _, p := range m.patients {
		if status != "" && p.Status != status {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}
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

func (m *mockRepo) Stats(_ context.Context, cutoff time.Time) (*Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &Stats{}
	for _, p := range m.patients {
		s.Total++
		switch p.Status {
		case StatusActive:
			s.Active++
		case StatusDeactivated:
			s.Deactivated++
		}
		if p.Status == StatusActive && !p.ReminderSent &&
			p.LastCheckupDate != nil && !p.LastCheckupDate.After(cutoff) {
			s.ReminderDue++
		}
	}
	return s, nil
}

func (m *mockRepo) SetCheckupDate(_ context.Context, id uuid.UUID, date time.Time, reminderEmail *string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return ErrNotFound
	}
	d := date
	p.LastCheckupDate = &d
	if reminderEmail != nil {
		p.ReminderEmail = reminderEmail
	}
	p.ReminderSent = false
	return nil
}

func (m *mockRepo) ListReminderDue(_ context.Context, cutoff time.Time) ([]*Patient, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*Patient
	for _, p := range m.patients {
		if p.Status != StatusActive || p.ReminderSent || p.LastCheckupDate == nil {
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

func (m *mockRepo) MarkReminderSent(_ context.Context, id uuid.UUID, lastCheckupDate time.Time) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return false, nil
	}
	if p.ReminderSent || p.LastCheckupDate == nil || !p.LastCheckupDate.Equal(lastCheckupDate) {
		return false, nil
	}
	p.ReminderSent = true
	return true, nil
}
