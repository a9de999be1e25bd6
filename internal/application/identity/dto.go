package identity

import (
	"time"

	"github.com/google/uuid"
)

// SignupInput contains the input for requesting a magic link
type SignupInput struct {
	Email string
}

// VerifyInput contains the input for redeeming a magic link
type VerifyInput struct {
	Token string
}

// AuthResult contains the tokens and profile returned after verification
type AuthResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
	Profile               ProfileInfo
}

// ProfileInfo contains basic profile information for API responses
type ProfileInfo struct {
	ID       uuid.UUID
	Email    string
	Username string
	IsAdmin  bool
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// RefreshTokenResult contains the result of a token refresh
type RefreshTokenResult struct {
	AccessToken           string
	RefreshToken          string
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
	TokenType             string
}

// SetUsernameInput contains the input for choosing a public handle
type SetUsernameInput struct {
	UserID   uuid.UUID
	Username string
}
