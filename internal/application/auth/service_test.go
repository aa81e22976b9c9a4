package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clearflow/clearflow-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) HardDelete(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) SetPassword(ctx context.Context, userID, hash string) error {
	return m.Called(ctx, userID, hash).Error(0)
}
func (m *mockUserStore) SetOTP(ctx context.Context, userID, code, purpose string, expiresAt time.Time) error {
	return m.Called(ctx, userID, code, purpose, expiresAt).Error(0)
}
func (m *mockUserStore) ClearOTP(ctx context.Context, userID, expectedCode string, extra map[string]interface{}) error {
	return m.Called(ctx, userID, expectedCode, extra).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendOTP(to, code string, ttl time.Duration) error {
	return m.Called(to, code, ttl).Error(0)
}

type mockIssuer struct{ mock.Mock }

func (m *mockIssuer) SignUser(u *domain.User) (string, error) {
	args := m.Called(u)
	return args.String(0), args.Error(1)
}

type mockRevoker struct{ mock.Mock }

func (m *mockRevoker) Revoke(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

// --- helpers ---

func newService(us *mockUserStore, ml *mockMailer, iss *mockIssuer, rv *mockRevoker) Service {
	return NewService(ServiceDeps{
		UserRepo:  us,
		Mailer:    ml,
		JWT:       iss,
		Blacklist: rv,
		NewID:     func() string { return "uid-1" },
		OTPTTL:    time.Minute,
	})
}

func signupReq() domain.SignupRequest {
	return domain.SignupRequest{
		FirstName: "Alice",
		LastName:  "Smith",
		Username:  "alice",
		Email:     "Alice@Example.com",
		Password:  "Str0ng!pass42",
	}
}

func hashOf(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func verifiedUser(t *testing.T, pw string) *domain.User {
	t.Helper()
	return &domain.User{
		UserID:       "uid-1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hashOf(t, pw),
		Verified:     true,
	}
}

func pendingOTP(code, purpose string, exp time.Time) (*string, *time.Time, *string) {
	return &code, &exp, &purpose
}

// --- signup ---

func TestSignup_Success_NormalizesEmail(t *testing.T) {
	us, ml := &mockUserStore{}, &mockMailer{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("Create", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "alice@example.com" && !u.Verified && u.OTPCode != nil &&
			u.OTPPurpose != nil && *u.OTPPurpose == domain.OTPPurposeSignup
	})).Return(nil)
	ml.On("SendOTP", "alice@example.com", mock.Anything, time.Minute).Return(nil)

	email, err := newService(us, ml, &mockIssuer{}, &mockRevoker{}).Signup(context.Background(), signupReq())
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)
	us.AssertExpectations(t)
	ml.AssertExpectations(t)
}

func TestSignup_WeakPassword(t *testing.T) {
	req := signupReq()
	req.Password = "short"
	_, err := newService(&mockUserStore{}, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).Signup(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(&domain.User{UserID: "other"}, nil)

	_, err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).Signup(context.Background(), signupReq())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSignup_MailFailureRollsBack(t *testing.T) {
	us, ml := &mockUserStore{}, &mockMailer{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, domain.ErrNotFound)
	us.On("GetByUsername", mock.Anything, "alice").Return(nil, domain.ErrNotFound)
	us.On("Create", mock.Anything, mock.Anything).Return(nil)
	us.On("HardDelete", mock.Anything, mock.Anything).Return(nil)
	ml.On("SendOTP", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	_, err := newService(us, ml, &mockIssuer{}, &mockRevoker{}).Signup(context.Background(), signupReq())
	assert.Error(t, err)
	us.AssertCalled(t, "HardDelete", mock.Anything, mock.Anything)
}

// --- verify / resend ---

func TestVerifyOTP_Success_SetsVerified(t *testing.T) {
	us := &mockUserStore{}
	u := verifiedUser(t, "x")
	u.Verified = false
	u.OTPCode, u.OTPExpiresAt, u.OTPPurpose = pendingOTP("123456", domain.OTPPurposeSignup, time.Now().Add(time.Minute))
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	us.On("ClearOTP", mock.Anything, "uid-1", "123456", map[string]interface{}{"verified": true}).Return(nil)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "alice@example.com", OTP: "123456"})
	require.NoError(t, err)
	us.AssertExpectations(t)
}

func TestVerifyOTP_Expired(t *testing.T) {
	us := &mockUserStore{}
	u := verifiedUser(t, "x")
	u.OTPCode, u.OTPExpiresAt, u.OTPPurpose = pendingOTP("123456", domain.OTPPurposeSignup, time.Now().Add(-time.Second))
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "alice@example.com", OTP: "123456"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	us := &mockUserStore{}
	u := verifiedUser(t, "x")
	u.OTPCode, u.OTPExpiresAt, u.OTPPurpose = pendingOTP("123456", domain.OTPPurposeSignup, time.Now().Add(time.Minute))
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "alice@example.com", OTP: "654321"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	us.AssertNotCalled(t, "ClearOTP", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyOTP_PurposeMismatch(t *testing.T) {
	us := &mockUserStore{}
	u := verifiedUser(t, "x")
	u.OTPCode, u.OTPExpiresAt, u.OTPPurpose = pendingOTP("123456", domain.OTPPurposeReset, time.Now().Add(time.Minute))
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		VerifyOTP(context.Background(), domain.VerifyOTPRequest{Email: "alice@example.com", OTP: "123456"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestResendOTP_AlreadyVerified(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(verifiedUser(t, "x"), nil)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).ResendOTP(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestResendOTP_IssuesFreshCode(t *testing.T) {
	us, ml := &mockUserStore{}, &mockMailer{}
	u := verifiedUser(t, "x")
	u.Verified = false
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	us.On("SetOTP", mock.Anything, "uid-1", mock.Anything, domain.OTPPurposeSignup, mock.Anything).Return(nil)
	ml.On("SendOTP", "alice@example.com", mock.Anything, time.Minute).Return(nil)

	err := newService(us, ml, &mockIssuer{}, &mockRevoker{}).ResendOTP(context.Background(), "alice@example.com")
	require.NoError(t, err)
	us.AssertExpectations(t)
	ml.AssertExpectations(t)
}

// --- login / logout ---

func TestLogin_Success(t *testing.T) {
	us, iss := &mockUserStore{}, &mockIssuer{}
	u := verifiedUser(t, "Str0ng!pass42")
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	iss.On("SignUser", u).Return("token-abc", nil)

	token, got, err := newService(us, &mockMailer{}, iss, &mockRevoker{}).
		Login(context.Background(), domain.LoginRequest{Email: "Alice@Example.com", Password: "Str0ng!pass42"})
	require.NoError(t, err)
	assert.Equal(t, "token-abc", token)
	assert.Equal(t, "uid-1", got.UserID)
}

func TestLogin_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, domain.ErrNotFound)

	_, _, err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		Login(context.Background(), domain.LoginRequest{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLogin_NotVerified(t *testing.T) {
	us := &mockUserStore{}
	u := verifiedUser(t, "Str0ng!pass42")
	u.Verified = false
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	_, _, err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		Login(context.Background(), domain.LoginRequest{Email: "alice@example.com", Password: "Str0ng!pass42"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestLogin_BadPassword(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(verifiedUser(t, "Str0ng!pass42"), nil)

	_, _, err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		Login(context.Background(), domain.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestLogout_RevokesToken(t *testing.T) {
	rv := &mockRevoker{}
	rv.On("Revoke", mock.Anything, "token-abc").Return(nil)

	err := newService(&mockUserStore{}, &mockMailer{}, &mockIssuer{}, rv).Logout(context.Background(), "token-abc")
	require.NoError(t, err)
	rv.AssertExpectations(t)
}

// --- password flows ---

func TestForgotPassword_NotVerified(t *testing.T) {
	us := &mockUserStore{}
	u := verifiedUser(t, "x")
	u.Verified = false
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).ForgotPassword(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestResetPassword_Success(t *testing.T) {
	us := &mockUserStore{}
	u := verifiedUser(t, "Old!pass42aB")
	u.OTPCode, u.OTPExpiresAt, u.OTPPurpose = pendingOTP("123456", domain.OTPPurposeReset, time.Now().Add(time.Minute))
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	us.On("ClearOTP", mock.Anything, "uid-1", "123456", mock.Anything).Return(nil)
	us.On("SetPassword", mock.Anything, "uid-1", mock.Anything).Return(nil)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		ResetPassword(context.Background(), domain.ResetPasswordRequest{
			Email: "alice@example.com", OTP: "123456", NewPassword: "N3w!pass42aB",
		})
	require.NoError(t, err)
	us.AssertExpectations(t)
}

func TestResetPassword_CodeAlreadyConsumed(t *testing.T) {
	us := &mockUserStore{}
	u := verifiedUser(t, "Old!pass42aB")
	u.OTPCode, u.OTPExpiresAt, u.OTPPurpose = pendingOTP("123456", domain.OTPPurposeReset, time.Now().Add(time.Minute))
	us.On("GetByEmail", mock.Anything, "alice@example.com").Return(u, nil)
	us.On("ClearOTP", mock.Anything, "uid-1", "123456", mock.Anything).Return(domain.ErrNotFound)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		ResetPassword(context.Background(), domain.ResetPasswordRequest{
			Email: "alice@example.com", OTP: "123456", NewPassword: "N3w!pass42aB",
		})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	us.AssertNotCalled(t, "SetPassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_BadCurrent(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "uid-1").Return(verifiedUser(t, "Curr3nt!pass"), nil)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		ChangePassword(context.Background(), "uid-1", "wrong", "N3w!pass42aB")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestChangePassword_Success(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "uid-1").Return(verifiedUser(t, "Curr3nt!pass4"), nil)
	us.On("SetPassword", mock.Anything, "uid-1", mock.Anything).Return(nil)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		ChangePassword(context.Background(), "uid-1", "Curr3nt!pass4", "N3w!pass42aB")
	require.NoError(t, err)
	us.AssertExpectations(t)
}

func TestChangePassword_WeakNew(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "uid-1").Return(verifiedUser(t, "Curr3nt!pass4"), nil)

	err := newService(us, &mockMailer{}, &mockIssuer{}, &mockRevoker{}).
		ChangePassword(context.Background(), "uid-1", "Curr3nt!pass4", "weak")
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	us.AssertNotCalled(t, "SetPassword", mock.Anything, mock.Anything, mock.Anything)
}
