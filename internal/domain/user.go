package domain

import "time"

// OTP purpose tags. A code is only consumable by a verify call made for the
// same purpose it was issued under.
const (
	OTPPurposeSignup      = "signup-verify"
	OTPPurposeReset       = "password-reset"
	OTPPurposeEmailChange = "email-change"
)

type User struct {
	UserID       string `json:"id" dynamodbav:"user_id"`
	FirstName    string `json:"first_name" dynamodbav:"first_name"`
	LastName     string `json:"last_name" dynamodbav:"last_name"`
	Username     string `json:"username" dynamodbav:"username"`
	Email        string `json:"email" dynamodbav:"email"`
	PasswordHash string `json:"-" dynamodbav:"password_hash"`
	Verified     bool   `json:"verified" dynamodbav:"verified"`

	// Embedded one-time code. A set code always has a paired expiry and purpose.
	OTPCode      *string    `json:"-" dynamodbav:"otp_code"`
	OTPExpiresAt *time.Time `json:"-" dynamodbav:"otp_expires_at"`
	OTPPurpose   *string    `json:"-" dynamodbav:"otp_purpose"`

	// PasswordChangedAt is the password epoch: nil means the password was
	// never changed after signup. Tokens issued before this instant are
	// rejected by the auth middleware.
	PasswordChangedAt *time.Time `json:"-" dynamodbav:"password_changed_at"`

	ProfilePictureURL *string `json:"profile_picture,omitempty" dynamodbav:"profile_picture_url"`
	ProfilePictureKey *string `json:"-" dynamodbav:"profile_picture_key"`

	// PendingEmail holds a requested email change until the owner confirms
	// it with a one-time code.
	PendingEmail *string `json:"-" dynamodbav:"pending_email"`

	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

type SignupRequest struct {
	FirstName string `json:"firstname" validate:"required,min=2"`
	LastName  string `json:"lastname" validate:"required,min=2"`
	Username  string `json:"username" validate:"required,min=3,max=32"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

type ChangeEmailRequest struct {
	NewEmail string `json:"newEmail" validate:"required,email"`
}

type ConfirmEmailChangeRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}
