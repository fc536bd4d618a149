package model

import "time"

// User is an account as returned to clients. The secret is never included.
type User struct {
	ID         int64  `json:"user_id"`
	Name       string `json:"user_name"`
	Right      string `json:"user_right"`
	Phone      string `json:"user_phone,omitempty"`
	Icon       string `json:"icon,omitempty"`
	DeleteIcon string `json:"delete_icon,omitempty"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	UserID   int64  `json:"user_id"`
	Password string `json:"user_password"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"user_name"`
	UserRight   string    `json:"user_right"`
}

// PasswordChangeRequest is the body of PUT /users/me/password.
type PasswordChangeRequest struct {
	Password    string `json:"user_password"`
	NewPassword string `json:"new_password"`
}

// SecretConfirmation is the body of DELETE /users/me.
type SecretConfirmation struct {
	Password string `json:"user_password"`
}

// ImageRequest is the body of PUT /users/me/image.
type ImageRequest struct {
	Icon       string `json:"icon"`
	DeleteIcon string `json:"delete_icon"`
}

// BatchDeleteRequest is the body of DELETE /admin/users.
type BatchDeleteRequest struct {
	UserIDs []int64 `json:"user_ids"`
}
