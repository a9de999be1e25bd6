package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/templeparties/backend/internal/application/identity"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *identity.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identity.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Signup accepts a campus email and sends a one-time sign-in link.
// The response is the same whether or not the address has an account.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	err := h.authService.Signup(c.Request.Context(), identity.SignupInput{
		Email: req.Email,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, SignupResponse{
		Message: "Check your inbox for a sign-in link",
	})
}

// Verify redeems a magic link token and returns a token pair plus the
// signed-in profile
func (h *AuthHandler) Verify(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		h.BadRequest(c, "Missing token")
		return
	}

	result, err := h.authService.Verify(c.Request.Context(), identity.VerifyInput{
		Token: token,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toVerifyResponse(result))
}

// RefreshToken exchanges a valid refresh token for a fresh token pair
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.RefreshToken(c.Request.Context(), identity.RefreshTokenInput{
		RefreshToken: req.RefreshToken,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, RefreshTokenResponse{
		Token: toTokenResponse(
			result.AccessToken,
			result.RefreshToken,
			result.TokenType,
			result.AccessTokenExpiresAt,
			result.RefreshTokenExpiresAt,
		),
	})
}

// SetUsername sets the caller's public handle and returns fresh tokens
// that carry it
func (h *AuthHandler) SetUsername(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req SetUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.authService.SetUsername(c.Request.Context(), identity.SetUsernameInput{
		UserID:   userID,
		Username: req.Username,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toVerifyResponse(result))
}

// GetCurrentProfile returns the caller's profile, or data null when the
// account behind the token no longer exists
func (h *AuthHandler) GetCurrentProfile(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	profile, err := h.authService.GetCurrentProfile(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if profile == nil {
		h.Success(c, nil)
		return
	}

	h.Success(c, toProfileResponse(*profile))
}
