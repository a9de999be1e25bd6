package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/templeparties/backend/internal/application/identity"
)

// =====================
// Auth Request DTOs
// =====================

// SignupRequest represents the request body for requesting a sign-in link
type SignupRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// SetUsernameRequest represents the request body for choosing a handle
type SetUsernameRequest struct {
	Username string `json:"username" binding:"required,min=3,max=20"`
}

// =====================
// Auth Response DTOs
// =====================

// TokenResponse represents the token data in auth responses
type TokenResponse struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
	TokenType             string    `json:"tokenType"`
}

// ProfileResponse represents profile data in auth responses
type ProfileResponse struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	IsAdmin  bool      `json:"isAdmin"`
}

// SignupResponse represents the response body after a sign-in link is sent
type SignupResponse struct {
	Message string `json:"message"`
}

// VerifyResponse represents the response body for a redeemed sign-in link
type VerifyResponse struct {
	Token   TokenResponse   `json:"token"`
	Profile ProfileResponse `json:"profile"`
}

// RefreshTokenResponse represents the response body for successful token refresh
type RefreshTokenResponse struct {
	Token TokenResponse `json:"token"`
}

func toTokenResponse(accessToken, refreshToken, tokenType string, accessExp, refreshExp time.Time) TokenResponse {
	return TokenResponse{
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
		TokenType:             tokenType,
	}
}

func toProfileResponse(p identity.ProfileInfo) ProfileResponse {
	return ProfileResponse{
		ID:       p.ID,
		Email:    p.Email,
		Username: p.Username,
		IsAdmin:  p.IsAdmin,
	}
}

func toVerifyResponse(result *identity.AuthResult) VerifyResponse {
	return VerifyResponse{
		Token: toTokenResponse(
			result.AccessToken,
			result.RefreshToken,
			result.TokenType,
			result.AccessTokenExpiresAt,
			result.RefreshTokenExpiresAt,
		),
		Profile: toProfileResponse(result.Profile),
	}
}
