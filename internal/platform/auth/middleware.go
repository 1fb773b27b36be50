package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const principalKey contextKey = "principal"

// AdminFinder reports whether an admin account still exists. The admin gate
// re-checks existence on every request so a deleted admin's outstanding
// tokens stop working immediately; the patient gate deliberately does not
// (token expiry alone bounds a deleted patient's access).
type AdminFinder interface {
	AdminExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// bearerToken extracts the token from the Authorization header. Returns
// ErrMissingToken when the header is absent or not a bearer credential.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMissingToken
	}
	return parts[1], nil
}

// unauthorized maps any authentication failure to a generic 401. Internal
// detail (bad signature vs unknown subject vs expiry) is never exposed.
func unauthorized() *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
}

// RequireAuth gates a route group behind a valid bearer token and attaches
// the resolved Principal to the request context. Verification only; no
// storage access.
func RequireAuth(codec *Codec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return unauthorized()
			}
			p, err := codec.Verify(tokenStr)
			if err != nil {
				return unauthorized()
			}
			attachPrincipal(c, p)
			return next(c)
		}
	}
}

// RequireAdmin gates admin routes. On top of token verification it requires
// the admin role and re-resolves the subject against the credential store,
// rejecting tokens whose admin account has since been deleted.
func RequireAdmin(codec *Codec, admins AdminFinder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := bearerToken(c)
			if err != nil {
				return unauthorized()
			}
			p, err := codec.Verify(tokenStr)
			if err != nil {
				return unauthorized()
			}
			if p.Role != RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			exists, err := admins.AdminExists(c.Request().Context(), p.ID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}
			if !exists {
				// ErrPrincipalNotFound case; same generic 401 as any other
				// authentication failure.
				return unauthorized()
			}
			attachPrincipal(c, p)
			return next(c)
		}
	}
}

// RequireRole returns middleware that checks the already-attached principal
// has one of the given roles. It must run after RequireAuth.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c.Request().Context())
			if !ok {
				return unauthorized()
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

func attachPrincipal(c echo.Context, p Principal) {
	c.SetRequest(c.Request().WithContext(WithPrincipal(c.Request().Context(), p)))
}

// WithPrincipal returns a context carrying the principal. Handler tests use
// it to simulate an authenticated request.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
