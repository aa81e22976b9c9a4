package jwtinfra

import (
	"errors"
	"time"

	"github.com/clearflow/clearflow-api/internal/config"
	"github.com/clearflow/clearflow-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim. User tokens pass the full
// password-epoch check in the auth middleware; device tokens only resolve
// the device.
const (
	TokenTypeUser   = "user"
	TokenTypeDevice = "device"
)

// Claims holds the JWT payload fields.
type Claims struct {
	UserID    string `json:"user_id,omitempty"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"type"`
	// PasswordChangedAt is the password epoch at issuance in unix
	// milliseconds; 0 means the password was never changed.
	PasswordChangedAt int64  `json:"password_changed_at,omitempty"`
	DeviceSerial      string `json:"device_serial,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 session tokens.
type Provider struct {
	secret []byte
	ttl    time.Duration
}

// NewProvider builds a Provider. An empty signing secret is a deployment
// error, not a per-request condition, so it fails construction.
func NewProvider(cfg *config.Config) (*Provider, error) {
	if cfg.TokenSecret == "" {
		return nil, errors.New("TOKEN_SECRET is not configured")
	}
	return &Provider{secret: []byte(cfg.TokenSecret), ttl: cfg.TokenTTL}, nil
}

// SignUser mints a session token for the user, snapshotting the current
// password epoch so a later password change invalidates it.
func (p *Provider) SignUser(u *domain.User) (string, error) {
	var epoch int64
	if u.PasswordChangedAt != nil {
		epoch = u.PasswordChangedAt.UnixMilli()
	}
	claims := Claims{
		UserID:            u.UserID,
		Username:          u.Username,
		TokenType:         TokenTypeUser,
		PasswordChangedAt: epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// SignDevice mints a telemetry token for a purifier unit.
func (p *Provider) SignDevice(serial string) (string, error) {
	claims := Claims{
		TokenType:    TokenTypeDevice,
		DeviceSerial: serial,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
}

// Verify checks signature and expiry and returns the parsed claims.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
