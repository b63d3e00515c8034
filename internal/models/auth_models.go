package models

import "time"

// LoginRequest represents the login credentials. The identifier may be a
// username or an email address.
type LoginRequest struct {
	Login    string `json:"login" binding:"required,max=255" example:"johndoe"`
	Password string `json:"password" binding:"required" example:"mypassword123"`
}

// RegisterRequest represents the request to create a new account
type RegisterRequest struct {
	Username string `json:"username" binding:"omitempty,min=3,max=50,nospaces"`
	FullName string `json:"full_name" binding:"omitempty,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

// UpdateUserRequest represents an admin or self profile update
type UpdateUserRequest struct {
	FullName *string `json:"full_name,omitempty" binding:"omitempty,max=255"`
	Position *string `json:"position,omitempty" binding:"omitempty,max=100"`
	Email    *string `json:"email,omitempty" binding:"omitempty,email"`
}

// ChangePasswordRequest represents the request to change a user's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// PasswordResetRequest initiates a password reset
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// CompleteResetRequest completes a password reset
type CompleteResetRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// StatusChangeRequest is an admin-initiated account status transition.
// Until is only honored for temporary blocks.
type StatusChangeRequest struct {
	Reason string     `json:"reason" binding:"required,max=500"`
	Until  *time.Time `json:"until,omitempty"`
}

// RefreshToken represents a stored refresh token row
type RefreshToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordReset represents a single-use password reset token row
type PasswordReset struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	Token     string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
