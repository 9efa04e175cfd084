package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/piresc/trackwash/internal/pkg/models"
)

// Roles carried in the role claim
const (
	RoleCustomer = "customer"
	RoleDetailer = "detailer"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrMissingUserID = errors.New("token has no user id")
	ErrMissingRole   = errors.New("token has no role")
)

// Claims issued by the auth provider. user_id is preferred and sub is the
// fallback for provider tokens that only carry the subject.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// UserUUID returns the authenticated user
func (c *Claims) UserUUID() (uuid.UUID, error) {
	raw := c.UserID
	if raw == "" {
		raw = c.RegisteredClaims.Subject
	}
	if raw == "" {
		return uuid.Nil, ErrMissingUserID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: user id is not a uuid", ErrInvalidToken)
	}
	return id, nil
}

// IsStaff reports whether the role may act on other customers' bookings
func (c *Claims) IsStaff() bool {
	return c.Role == RoleAdmin || c.Role == RoleOperator
}

// GenerateToken signs an HS256 token. Identity is owned by the auth
// provider; tooling and tests use this.
func GenerateToken(userID uuid.UUID, role string, cfg *models.Config) (string, int64, error) {
	now := time.Now()
	expiresAt := now.Add(time.Duration(cfg.JWT.Expiration) * time.Minute)

	claims := Claims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.Secret))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt.Unix(), nil
}

// ValidateToken checks the HMAC signature and expiry. A non-empty issuer
// must match the iss claim.
func ValidateToken(tokenString string, cfg models.JWTConfig) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if cfg.Issuer != "" && !claims.VerifyIssuer(cfg.Issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if claims.Role == "" {
		return nil, ErrMissingRole
	}
	return claims, nil
}
