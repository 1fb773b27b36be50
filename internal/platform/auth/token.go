package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role identifies the kind of account a token was issued for.
type Role string

const (
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

// Authentication failures. All of them surface to callers as a generic 401;
// the distinction exists for logging and tests only.
var (
	ErrMissingToken      = errors.New("missing bearer token")
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token expired")
	ErrPrincipalNotFound = errors.New("principal not found")
)

// Principal is the authenticated identity attached to a request after token
// verification. It is built per request and never persisted.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

// Claims is the signed token payload: registered sub/iat/exp plus the role.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// Codec signs and verifies bearer tokens with a single HMAC secret. Expiry is
// the only invalidation mechanism; there is no revocation list.
type Codec struct {
	secret          []byte
	patientTokenTTL time.Duration
	adminTokenTTL   time.Duration
	now             func() time.Time
}

func NewCodec(secret []byte, patientTTL, adminTTL time.Duration) *Codec {
	return &Codec{
		secret:          secret,
		patientTokenTTL: patientTTL,
		adminTokenTTL:   adminTTL,
		now:             time.Now,
	}
}

// SetClock overrides the codec's time source. Tests use this to exercise
// expiry boundaries.
func (c *Codec) SetClock(now func() time.Time) { c.now = now }

// Issue creates a signed token for the given subject. Patient tokens and
// admin tokens carry different lifetimes.
func (c *Codec) Issue(subject uuid.UUID, role Role) (string, error) {
	ttl := c.patientTokenTTL
	if role == RoleAdmin {
		ttl = c.adminTokenTTL
	}
	now := c.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Verify decodes and validates a token string, returning the Principal it
// carries. Verification is read-only: it never touches storage.
func (c *Codec) Verify(tokenStr string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (interface{}, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Principal{}, ErrExpiredToken
		}
		return Principal{}, ErrInvalidToken
	}
	if !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	if claims.Role != RolePatient && claims.Role != RoleAdmin {
		return Principal{}, ErrInvalidToken
	}
	return Principal{ID: id, Role: claims.Role}, nil
}
