package user

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/clearflow/clearflow-api/internal/domain"
	"github.com/clearflow/clearflow-api/internal/pkg/otp"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldProfilePictureURL = "profile_picture_url"
	fieldProfilePictureKey = "profile_picture_key"
	fieldPendingEmail      = "pending_email"
)

type Service interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	UploadProfilePicture(ctx context.Context, userID, filename string, r io.Reader, contentType string) (*domain.User, error)
	RequestEmailChange(ctx context.Context, userID, newEmail string) error
	ConfirmEmailChange(ctx context.Context, userID, code string) error
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SetOTP(ctx context.Context, userID, code, purpose string, expiresAt time.Time) error
	ClearOTP(ctx context.Context, userID, expectedCode string, extra map[string]interface{}) error
	ApplyEmailChange(ctx context.Context, u *domain.User, newEmail string) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

type mailer interface {
	SendOTP(to, code string, ttl time.Duration) error
}

type service struct {
	repo    userStore
	objects objectStore
	mailer  mailer
	newID   func() string
	otpTTL  time.Duration
}

type ServiceDeps struct {
	UserRepo    userStore
	ObjectStore objectStore
	Mailer      mailer
	NewID       func() string
	OTPTTL      time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:    deps.UserRepo,
		objects: deps.ObjectStore,
		mailer:  deps.Mailer,
		newID:   deps.NewID,
		otpTTL:  deps.OTPTTL,
	}
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

// UploadProfilePicture stores the image, points the user record at it, then
// deletes the previous object. A failed delete leaves an orphan in the
// bucket, never a broken record.
func (s *service) UploadProfilePicture(ctx context.Context, userID, filename string, r io.Reader, contentType string) (*domain.User, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("profile-pictures/%s/%s%s", userID, s.newID(), path.Ext(filename))
	url, err := s.objects.Upload(ctx, key, r, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, userID, map[string]interface{}{
		fieldProfilePictureURL: url,
		fieldProfilePictureKey: key,
	}); err != nil {
		return nil, err
	}
	if u.ProfilePictureKey != nil {
		if err := s.objects.Delete(ctx, *u.ProfilePictureKey); err != nil {
			slog.Warn("failed to delete old profile picture", "key", *u.ProfilePictureKey, "error", err)
		}
	}
	u.ProfilePictureURL = &url
	u.ProfilePictureKey = &key
	return u, nil
}

// RequestEmailChange parks the new address on the record and sends a
// confirmation code to it. The current email keeps working until the code
// is confirmed.
func (s *service) RequestEmailChange(ctx context.Context, userID, newEmail string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if newEmail == u.Email {
		return fmt.Errorf("new email matches current email: %w", domain.ErrBadRequest)
	}
	if _, err := s.repo.GetByEmail(ctx, newEmail); err == nil {
		return fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if err := s.repo.Update(ctx, userID, map[string]interface{}{fieldPendingEmail: newEmail}); err != nil {
		return err
	}
	code, err := otp.New()
	if err != nil {
		return err
	}
	if err := s.repo.SetOTP(ctx, userID, code, domain.OTPPurposeEmailChange, time.Now().UTC().Add(s.otpTTL)); err != nil {
		return err
	}
	if err := s.mailer.SendOTP(newEmail, code, s.otpTTL); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}

// ConfirmEmailChange consumes the code and swaps the email, claiming the new
// uniqueness marker transactionally.
func (s *service) ConfirmEmailChange(ctx context.Context, userID, code string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if u.PendingEmail == nil {
		return fmt.Errorf("no email change pending: %w", domain.ErrBadRequest)
	}
	if u.OTPCode == nil || u.OTPExpiresAt == nil || u.OTPPurpose == nil || *u.OTPPurpose != domain.OTPPurposeEmailChange {
		return fmt.Errorf("no code pending: %w", domain.ErrBadRequest)
	}
	if time.Now().UTC().After(*u.OTPExpiresAt) {
		return fmt.Errorf("code expired: %w", domain.ErrBadRequest)
	}
	if !otp.Equal(*u.OTPCode, code) {
		return fmt.Errorf("invalid code: %w", domain.ErrBadRequest)
	}
	if err := s.repo.ClearOTP(ctx, userID, code, nil); err != nil {
		return err
	}
	return s.repo.ApplyEmailChange(ctx, u, *u.PendingEmail)
}
