package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clearflow/clearflow-api/internal/domain"
	"github.com/clearflow/clearflow-api/internal/pkg/otp"
	"github.com/clearflow/clearflow-api/internal/pkg/password"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldVerified = "verified"
)

type Service interface {
	Signup(ctx context.Context, req domain.SignupRequest) (string, error)
	VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) error
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, req domain.LoginRequest) (string, *domain.User, error)
	Logout(ctx context.Context, token string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	HardDelete(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	SetPassword(ctx context.Context, userID, hash string) error
	SetOTP(ctx context.Context, userID, code, purpose string, expiresAt time.Time) error
	ClearOTP(ctx context.Context, userID, expectedCode string, extra map[string]interface{}) error
}

type mailer interface {
	SendOTP(to, code string, ttl time.Duration) error
}

type tokenIssuer interface {
	SignUser(u *domain.User) (string, error)
}

type revoker interface {
	Revoke(ctx context.Context, token string) error
}

type idGenerator func() string

type service struct {
	repo      userStore
	mailer    mailer
	jwt       tokenIssuer
	blacklist revoker
	newID     idGenerator
	otpTTL    time.Duration
}

type ServiceDeps struct {
	UserRepo  userStore
	Mailer    mailer
	JWT       tokenIssuer
	Blacklist revoker
	NewID     idGenerator
	OTPTTL    time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:      deps.UserRepo,
		mailer:    deps.Mailer,
		jwt:       deps.JWT,
		blacklist: deps.Blacklist,
		newID:     deps.NewID,
		otpTTL:    deps.OTPTTL,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an unverified account and emails a one-time code. If the
// email cannot be delivered the account is rolled back, so a retry with the
// same address does not hit the uniqueness guard.
func (s *service) Signup(ctx context.Context, req domain.SignupRequest) (string, error) {
	email := normalizeEmail(req.Email)
	if err := password.Validate(req.Password); err != nil {
		return "", fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return "", fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if _, err := s.repo.GetByUsername(ctx, req.Username); err == nil {
		return "", fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	code, err := otp.New()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	expires := now.Add(s.otpTTL)
	purpose := domain.OTPPurposeSignup
	u := &domain.User{
		UserID:       s.newID(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        email,
		PasswordHash: string(hash),
		Verified:     false,
		OTPCode:      &code,
		OTPExpiresAt: &expires,
		OTPPurpose:   &purpose,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return "", err
	}

	if err := s.mailer.SendOTP(email, code, s.otpTTL); err != nil {
		if delErr := s.repo.HardDelete(ctx, u); delErr != nil {
			slog.Error("signup rollback failed", "user_id", u.UserID, "error", delErr)
		}
		return "", fmt.Errorf("send verification email: %w", err)
	}
	return email, nil
}

// VerifyOTP consumes a signup code and marks the account verified. The
// conditional clear in the store serializes concurrent submissions of the
// same code.
func (s *service) VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) error {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if err := checkOTP(u, req.OTP, domain.OTPPurposeSignup); err != nil {
		return err
	}
	return s.repo.ClearOTP(ctx, u.UserID, req.OTP, map[string]interface{}{
		fieldVerified: true,
	})
}

// ResendOTP issues a fresh signup code, invalidating the previous one.
func (s *service) ResendOTP(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if u.Verified {
		return fmt.Errorf("account already verified: %w", domain.ErrBadRequest)
	}
	return s.issueOTP(ctx, u, domain.OTPPurposeSignup)
}

// Login checks credentials and mints a session token. Unverified accounts
// and bad passwords are distinct log events but both reject the request.
func (s *service) Login(ctx context.Context, req domain.LoginRequest) (string, *domain.User, error) {
	email := normalizeEmail(req.Email)
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, err
	}
	if !u.Verified {
		slog.Info("login rejected: account not verified", "email", email)
		return "", nil, fmt.Errorf("please verify your email before logging in: %w", domain.ErrBadRequest)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		slog.Info("login rejected: bad credentials", "email", email)
		return "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrBadRequest)
	}
	token, err := s.jwt.SignUser(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Logout revokes the presented token. Revoking twice is a no-op success, so
// logout is idempotent.
func (s *service) Logout(ctx context.Context, token string) error {
	return s.blacklist.Revoke(ctx, token)
}

// ForgotPassword emails a reset code to a verified account.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if !u.Verified {
		return fmt.Errorf("account not verified: %w", domain.ErrBadRequest)
	}
	return s.issueOTP(ctx, u, domain.OTPPurposeReset)
}

// ResetPassword consumes a reset code and installs a new password. The store
// stamps the password epoch, so outstanding session tokens stop validating.
func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	u, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return err
	}
	if err := checkOTP(u, req.OTP, domain.OTPPurposeReset); err != nil {
		return err
	}
	if err := password.Validate(req.NewPassword); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	if err := s.repo.ClearOTP(ctx, u.UserID, req.OTP, nil); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, u.UserID, string(hash))
}

// ChangePassword replaces the password for an authenticated user after
// re-checking the current one.
func (s *service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)) != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrBadRequest)
	}
	if err := password.Validate(newPassword); err != nil {
		return fmt.Errorf("%s: %w", err.Error(), domain.ErrBadRequest)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.SetPassword(ctx, u.UserID, string(hash))
}

func (s *service) issueOTP(ctx context.Context, u *domain.User, purpose string) error {
	code, err := otp.New()
	if err != nil {
		return err
	}
	if err := s.repo.SetOTP(ctx, u.UserID, code, purpose, time.Now().UTC().Add(s.otpTTL)); err != nil {
		return err
	}
	if err := s.mailer.SendOTP(u.Email, code, s.otpTTL); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}

// checkOTP validates a submitted code against the one embedded on the user
// record. Expired or mismatched codes are indistinguishable to the caller.
func checkOTP(u *domain.User, submitted, wantPurpose string) error {
	if u.OTPCode == nil || u.OTPExpiresAt == nil || u.OTPPurpose == nil {
		return fmt.Errorf("no code pending: %w", domain.ErrBadRequest)
	}
	if *u.OTPPurpose != wantPurpose {
		return fmt.Errorf("no code pending: %w", domain.ErrBadRequest)
	}
	if time.Now().UTC().After(*u.OTPExpiresAt) {
		return fmt.Errorf("code expired: %w", domain.ErrBadRequest)
	}
	if !otp.Equal(*u.OTPCode, submitted) {
		return fmt.Errorf("invalid code: %w", domain.ErrBadRequest)
	}
	return nil
}
