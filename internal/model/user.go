package model

import (
	"net/mail"
	"time"
	"unicode/utf8"
)

// User represents a registered account. The password hash never leaves
// the server; the struct serializes without it.
type User struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	Name      string    `gorm:"not null;type:text" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null;type:text" json:"email"`
	Password  string    `gorm:"not null;type:text" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// RegisterRequest represents the request body for user registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks if the RegisterRequest is valid.
func (r *RegisterRequest) Validate() error {
	if utf8.RuneCountInString(r.Name) < 2 {
		return ErrNameTooShort
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return ErrInvalidEmail
	}
	if utf8.RuneCountInString(r.Password) < 6 {
		return ErrPasswordTooShort
	}
	return nil
}

// LoginRequest represents the request body for user login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks if the LoginRequest is valid.
func (r *LoginRequest) Validate() error {
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return ErrInvalidEmail
	}
	if r.Password == "" {
		return ErrPasswordTooShort
	}
	return nil
}

// UpdateProfileRequest represents the request body for profile updates.
// Nil fields are left untouched.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// Validate checks if the UpdateProfileRequest is valid.
func (r *UpdateProfileRequest) Validate() error {
	if r.Name != nil && utf8.RuneCountInString(*r.Name) < 2 {
		return ErrNameTooShort
	}
	if r.Email != nil {
		if _, err := mail.ParseAddress(*r.Email); err != nil {
			return ErrInvalidEmail
		}
	}
	return nil
}

// ChangePasswordRequest represents the request body for password changes.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate checks if the ChangePasswordRequest is valid.
func (r *ChangePasswordRequest) Validate() error {
	if r.CurrentPassword == "" || utf8.RuneCountInString(r.NewPassword) < 6 {
		return ErrPasswordTooShort
	}
	return nil
}

// DeleteAccountRequest represents the request body for account deletion.
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// AuthError represents a domain error for users and credentials.
type AuthError struct {
	Message string
}

func (e AuthError) Error() string {
	return e.Message
}

var (
	ErrUserNotFound       = AuthError{Message: "User not found"}
	ErrEmailTaken         = AuthError{Message: "User with this email already exists"}
	ErrInvalidCredentials = AuthError{Message: "Invalid email or password"}
	ErrInvalidToken       = AuthError{Message: "Invalid or expired token"}
	ErrInvalidPassword    = AuthError{Message: "Invalid password"}
	ErrNameTooShort       = AuthError{Message: "Name must be at least 2 characters"}
	ErrInvalidEmail       = AuthError{Message: "Please enter a valid email address"}
	ErrPasswordTooShort   = AuthError{Message: "Password must be at least 6 characters"}
)
