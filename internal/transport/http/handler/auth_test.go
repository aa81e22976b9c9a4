package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clearflow/clearflow-api/internal/domain"
	"github.com/clearflow/clearflow-api/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockAuthSvc struct{ mock.Mock }

func (m *mockAuthSvc) Signup(ctx context.Context, req domain.SignupRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
func (m *mockAuthSvc) VerifyOTP(ctx context.Context, req domain.VerifyOTPRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockAuthSvc) ResendOTP(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}
func (m *mockAuthSvc) Login(ctx context.Context, req domain.LoginRequest) (string, *domain.User, error) {
	args := m.Called(ctx, req)
	if u, _ := args.Get(1).(*domain.User); u != nil {
		return args.String(0), u, args.Error(2)
	}
	return args.String(0), nil, args.Error(2)
}
func (m *mockAuthSvc) Logout(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
func (m *mockAuthSvc) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}
func (m *mockAuthSvc) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}
func (m *mockAuthSvc) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return m.Called(ctx, userID, currentPassword, newPassword).Error(0)
}

// --- helpers ---

func postJSON(t *testing.T, h http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validSignup() domain.SignupRequest {
	return domain.SignupRequest{
		FirstName: "Alice", LastName: "Smith", Username: "alice",
		Email: "alice@example.com", Password: "Str0ng!pass42",
	}
}

// --- tests ---

func TestSignup_Created(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Signup", mock.Anything, validSignup()).Return("alice@example.com", nil)
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Signup, "/api/auth/signup", validSignup())
	require.Equal(t, http.StatusCreated, rec.Code)

	var env SignupEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "alice@example.com", env.Email)
}

func TestSignup_ValidationRejectsBadEmail(t *testing.T) {
	req := validSignup()
	req.Email = "not-an-email"
	h := NewAuthHandler(&mockAuthSvc{})

	rec := postJSON(t, h.Signup, "/api/auth/signup", req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignup_Conflict(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Signup", mock.Anything, mock.Anything).Return("", domain.ErrConflict)
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Signup, "/api/auth/signup", validSignup())
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_ReturnsBearerAndUser(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, domain.LoginRequest{Email: "alice@example.com", Password: "pw"}).
		Return("token-abc", &domain.User{UserID: "u1", Username: "alice"}, nil)
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Login, "/api/auth/login", domain.LoginRequest{Email: "alice@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code)

	var env AuthEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "token-abc", env.Bearer)
	require.NotNil(t, env.User)
	assert.Equal(t, "alice", env.User.Username)
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestLogin_BadCredentials(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Login", mock.Anything, mock.Anything).Return("", nil, domain.ErrBadRequest)
	h := NewAuthHandler(svc)

	rec := postJSON(t, h.Login, "/api/auth/login", domain.LoginRequest{Email: "alice@example.com", Password: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogout_MissingHeader(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_RevokesPresentedToken(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("Logout", mock.Anything, "some-token").Return(nil)
	h := NewAuthHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestChangePassword_RequiresUserContext(t *testing.T) {
	h := NewAuthHandler(&mockAuthSvc{})
	rec := postJSON(t, h.ChangePassword, "/api/auth/change-password",
		domain.ChangePasswordRequest{CurrentPassword: "a", NewPassword: "b"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChangePassword_Success(t *testing.T) {
	svc := &mockAuthSvc{}
	svc.On("ChangePassword", mock.Anything, "u1", "Curr3nt!pass4", "N3w!pass42aB").Return(nil)
	h := NewAuthHandler(svc)

	raw, err := json.Marshal(domain.ChangePasswordRequest{CurrentPassword: "Curr3nt!pass4", NewPassword: "N3w!pass42aB"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/change-password", bytes.NewReader(raw))
	ctx := context.WithValue(req.Context(), middleware.UserKey, &domain.User{UserID: "u1"})
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, req.WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}
