package admin

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carevault/carevault/internal/domain/patient"
	"github.com/carevault/carevault/internal/platform/auth"
)

type mockRepo struct {
	mu     sync.Mutex
	admins map[uuid.UUID]*Admin
}

func newMockRepo() *mockRepo {
	return &mockRepo{admins: make(map[uuid.UUID]*Admin)}
}

func (m *mockRepo) Create(_ context.Context, a *Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	m.admins[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.admins[id]
	return ok, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Admin, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Admin
	for _, a := range m.admins {
		cp := *a
		items = append(items, &cp)
	}
	total := len(items)
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], total, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[id]; !ok {
		return ErrNotFound
	}
	delete(m.admins, id)
	return nil
}

func testService() (*Service, *mockRepo, *auth.Codec) {
	repo := newMockRepo()
	codec := auth.NewCodec([]byte("test-secret"), time.Hour, 24*time.Hour)
	return NewService(repo, codec), repo, codec
}

func validRegister() RegisterInput {
	return RegisterInput{
		FirstName: "Ada",
		LastName:  "Admin",
		Email:     "ada@example.com",
		Password:  "long-enough-pass",
	}
}

func TestRegister_IssuesAdminToken(t *testing.T) {
	svc, _, codec := testService()

	a, token, err := svc.Register(context.Background(), validRegister())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("token does not verify: %v", err)
	}
	if p.Role != auth.RoleAdmin || p.ID != a.ID {
		t.Errorf("unexpected principal %+v", p)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := testService()
	svc.Register(context.Background(), validRegister())

	if _, _, err := svc.Register(context.Background(), validRegister()); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := testService()
	svc.Register(context.Background(), validRegister())

	if _, _, err := svc.Login(context.Background(), "ada@example.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	svc, _, _ := testService()
	svc.Register(context.Background(), validRegister())

	a, token, err := svc.Login(context.Background(), "ada@example.com", "long-enough-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Email != "ada@example.com" || token == "" {
		t.Errorf("unexpected login result %+v token=%q", a, token)
	}
}

type stubPatientStats struct{ stats patient.Stats }

func (s *stubPatientStats) Stats(_ context.Context) (*patient.Stats, error) {
	cp := s.stats
	return &cp, nil
}

type stubReportCounter struct{ total int }

func (s *stubReportCounter) Count(_ context.Context) (int, error) { return s.total, nil }

func TestDashboardStats(t *testing.T) {
	svc, _, _ := testService()
	svc.SetDashboardSources(
		&stubPatientStats{stats: patient.Stats{Total: 5, Active: 4, Deactivated: 1, ReminderDue: 2}},
		&stubReportCounter{total: 9},
	)

	d, err := svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.TotalPatients != 5 || d.ActivePatients != 4 || d.DeactivatedPatients != 1 {
		t.Errorf("unexpected patient counts %+v", d)
	}
	if d.RemindersDue != 2 || d.TotalReports != 9 {
		t.Errorf("unexpected dashboard %+v", d)
	}
}

func TestDashboardStats_NoSources(t *testing.T) {
	svc, _, _ := testService()
	d, err := svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *d != (Dashboard{}) {
		t.Errorf("expected zero dashboard, got %+v", d)
	}
}

func TestAdminExists(t *testing.T) {
	svc, repo, _ := testService()
	a, _, _ := svc.Register(context.Background(), validRegister())

	exists, err := svc.AdminExists(context.Background(), a.ID)
	if err != nil || !exists {
		t.Errorf("expected admin to exist, got %v %v", exists, err)
	}

	repo.Delete(context.Background(), a.ID)
	exists, err = svc.AdminExists(context.Background(), a.ID)
	if err != nil || exists {
		t.Errorf("expected admin to be gone, got %v %v", exists, err)
	}
}
