package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type mockAdminFinder struct {
	existing map[uuid.UUID]bool
	err      error
}

func (m *mockAdminFinder) AdminExists(_ context.Context, id uuid.UUID) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.existing[id], nil
}

// invoke runs a middleware-wrapped no-op handler against a request carrying
// the given Authorization header and reports whether the handler ran.
func invoke(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (handled bool, err error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error {
		handled = true
		return c.NoContent(http.StatusOK)
	})
	return handled, h(c)
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	handled, err := invoke(t, RequireAuth(testCodec()), "")
	if handled {
		t.Error("handler must not run without a token")
	}
	if httpStatus(t, err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequireAuth_NonBearerScheme(t *testing.T) {
	handled, err := invoke(t, RequireAuth(testCodec()), "Basic dXNlcjpwYXNz")
	if handled {
		t.Error("handler must not run with a non-bearer credential")
	}
	if httpStatus(t, err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	handled, err := invoke(t, RequireAuth(testCodec()), "Bearer garbage")
	if handled {
		t.Error("handler must not run with an invalid token")
	}
	if httpStatus(t, err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	codec := testCodec()
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	codec.SetClock(func() time.Time { return issued })
	tokenStr, _ := codec.Issue(uuid.New(), RolePatient)
	codec.SetClock(func() time.Time { return issued.Add(2 * time.Hour) })

	handled, err := invoke(t, RequireAuth(codec), "Bearer "+tokenStr)
	if handled {
		t.Error("handler must not run with an expired token")
	}
	if httpStatus(t, err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequireAuth_AttachesPrincipal(t *testing.T) {
	codec := testCodec()
	id := uuid.New()
	tokenStr, _ := codec.Issue(id, RolePatient)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenStr)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got Principal
	h := RequireAuth(codec)(func(c echo.Context) error {
		p, ok := PrincipalFromContext(c.Request().Context())
		if !ok {
			t.Fatal("expected principal in context")
		}
		got = p
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != id || got.Role != RolePatient {
		t.Errorf("unexpected principal: %+v", got)
	}
}

func TestRequireAdmin_PatientTokenForbidden(t *testing.T) {
	codec := testCodec()
	tokenStr, _ := codec.Issue(uuid.New(), RolePatient)
	finder := &mockAdminFinder{existing: map[uuid.UUID]bool{}}

	handled, err := invoke(t, RequireAdmin(codec, finder), "Bearer "+tokenStr)
	if handled {
		t.Error("handler must not run for a patient token on an admin route")
	}
	if httpStatus(t, err) != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestRequireAdmin_DeletedAdminRejected(t *testing.T) {
	codec := testCodec()
	id := uuid.New()
	tokenStr, _ := codec.Issue(id, RoleAdmin)
	finder := &mockAdminFinder{existing: map[uuid.UUID]bool{}} // no longer exists

	handled, err := invoke(t, RequireAdmin(codec, finder), "Bearer "+tokenStr)
	if handled {
		t.Error("handler must not run for a deleted admin")
	}
	if httpStatus(t, err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequireAdmin_OK(t *testing.T) {
	codec := testCodec()
	id := uuid.New()
	tokenStr, _ := codec.Issue(id, RoleAdmin)
	finder := &mockAdminFinder{existing: map[uuid.UUID]bool{id: true}}

	handled, err := invoke(t, RequireAdmin(codec, finder), "Bearer "+tokenStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handled {
		t.Error("expected handler to run")
	}
}

func TestRequireRole_WithoutPrincipal(t *testing.T) {
	handled, err := invoke(t, RequireRole(RolePatient), "")
	if handled {
		t.Error("handler must not run without a principal")
	}
	if httpStatus(t, err) != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRequireRole_Mismatch(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	attachPrincipal(c, Principal{ID: uuid.New(), Role: RolePatient})

	h := RequireRole(RoleAdmin)(func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	})
	if httpStatus(t, h(c)) != http.StatusForbidden {
		t.Error("expected 403 for role mismatch")
	}
}
