package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templeparties/backend/internal/domain/identity"
	"github.com/templeparties/backend/internal/domain/shared"
	"github.com/templeparties/backend/internal/infrastructure/auth"
	"github.com/templeparties/backend/internal/infrastructure/mail"
	"github.com/templeparties/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	AllowedEmailDomain string        // Campus domain required for signup
	MagicLinkTTL       time.Duration // How long a sign-in link stays valid
	AdminEmails        []string      // Addresses promoted to admin on sign-in
	BaseURL            string        // Public base URL used in sign-in links
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		AllowedEmailDomain: "temple.edu",
		MagicLinkTTL:       15 * time.Minute,
		BaseURL:            "http://localhost:8080",
	}
}

// AuthService handles passwordless authentication operations
type AuthService struct {
	profileRepo identity.ProfileRepository
	magicLinks  auth.MagicLinkStore
	mailer      mail.Mailer
	jwtService  *auth.JWTService
	config      AuthServiceConfig
	logger      *zap.Logger
	metrics     *telemetry.BusinessMetrics
}

// NewAuthService creates a new authentication service
func NewAuthService(
	profileRepo identity.ProfileRepository,
	magicLinks auth.MagicLinkStore,
	mailer mail.Mailer,
	jwtService *auth.JWTService,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		profileRepo: profileRepo,
		magicLinks:  magicLinks,
		mailer:      mailer,
		jwtService:  jwtService,
		config:      config,
		logger:      logger,
	}
}

// WithMetrics attaches business metrics recording to the service
func (s *AuthService) WithMetrics(metrics *telemetry.BusinessMetrics) *AuthService {
	s.metrics = metrics
	return s
}

// Signup validates a campus email and sends a one-time sign-in link.
// The outcome is identical for known and unknown addresses so the
// endpoint cannot be used to probe which students have accounts.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "signup")
	defer span.End()

	email, err := identity.NormalizeEmail(input.Email, s.config.AllowedEmailDomain)
	if err != nil {
		s.logger.Warn("Signup with invalid email", zap.String("email", input.Email))
		telemetry.RecordError(span, err)
		return err
	}

	token, err := s.magicLinks.Issue(ctx, email, s.config.MagicLinkTTL)
	if err != nil {
		s.logger.Error("Failed to issue magic link", zap.Error(err))
		telemetry.RecordError(span, err)
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to start sign-in")
	}

	link := strings.TrimRight(s.config.BaseURL, "/") + "/api/v1/auth/verify?token=" + token
	if err := s.mailer.SendMagicLink(ctx, email, link); err != nil {
		s.logger.Error("Failed to send magic link email", zap.Error(err))
		telemetry.RecordError(span, err)
		return shared.NewDomainError("INTERNAL_ERROR", "Failed to send sign-in email")
	}

	if s.metrics != nil {
		s.metrics.RecordMagicLink(ctx, telemetry.MagicLinkIssued)
	}

	s.logger.Info("Magic link sent", zap.String("email", email))
	return nil
}

// Verify redeems a magic link token and signs the student in.
// First-time addresses get a profile created on the spot; addresses on
// the admin list are promoted before the tokens are minted.
func (s *AuthService) Verify(ctx context.Context, input VerifyInput) (*AuthResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "verify")
	defer span.End()

	email, err := s.magicLinks.Consume(ctx, input.Token)
	if err != nil {
		if errors.Is(err, auth.ErrMagicLinkNotFound) {
			s.logger.Warn("Magic link rejected")
			if s.metrics != nil {
				s.metrics.RecordMagicLink(ctx, telemetry.MagicLinkRejected)
			}
			return nil, shared.NewDomainError("INVALID_MAGIC_LINK", "Sign-in link is invalid or has expired")
		}
		s.logger.Error("Failed to consume magic link", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to verify sign-in link")
	}

	profile, err := s.profileRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		// Existing account; promote if the address joined the admin list
		if s.isAdminEmail(email) && !profile.IsAdmin {
			profile.GrantAdmin()
			if err := s.profileRepo.Update(ctx, profile); err != nil {
				s.logger.Error("Failed to promote profile", zap.Error(err))
				return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to sign in")
			}
		}

	case errors.Is(err, shared.ErrNotFound):
		profile, err = identity.NewProfile(email, s.config.AllowedEmailDomain)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if s.isAdminEmail(email) {
			profile.GrantAdmin()
		}
		if err := s.profileRepo.Save(ctx, profile); err != nil {
			s.logger.Error("Failed to create profile", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to create account")
		}
		s.logger.Info("Profile created", zap.String("profile_id", profile.ID.String()))

	default:
		s.logger.Error("Failed to look up profile", zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to sign in")
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   profile.ID,
		Email:    profile.Email,
		Username: profile.Username,
		IsAdmin:  profile.IsAdmin,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	if s.metrics != nil {
		s.metrics.RecordMagicLink(ctx, telemetry.MagicLinkVerified)
	}

	s.logger.Info("Student signed in",
		zap.String("profile_id", profile.ID.String()),
		zap.Bool("is_admin", profile.IsAdmin))

	return &AuthResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
		Profile:               toProfileInfo(profile),
	}, nil
}

// RefreshToken refreshes the access token using a valid refresh token.
// The profile is reloaded so a handle chosen or admin grant made since
// the last refresh lands in the new access token.
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		s.logger.Error("Invalid user ID in refresh token", zap.Error(err))
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}

	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Profile not found during token refresh", zap.String("user_id", userID.String()))
		return nil, shared.NewDomainError("USER_NOT_FOUND", "Account not found")
	}

	tokenPair, err := s.jwtService.RefreshTokenPair(input.RefreshToken, auth.RefreshInput{
		Username: profile.Username,
		IsAdmin:  profile.IsAdmin,
	})
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Error(err))
		return nil, mapTokenError(err)
	}

	s.logger.Info("Token refreshed", zap.String("user_id", userID.String()))

	return &RefreshTokenResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
	}, nil
}

// SetUsername sets the caller's public handle and mints fresh tokens
// carrying it.
func (s *AuthService) SetUsername(ctx context.Context, input SetUsernameInput) (*AuthResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "set_username")
	defer span.End()

	profile, err := s.profileRepo.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, shared.NewDomainError("USER_NOT_FOUND", "Account not found")
	}

	trimmed := strings.TrimSpace(input.Username)
	if !strings.EqualFold(trimmed, profile.Username) {
		taken, err := s.profileRepo.ExistsByUsername(ctx, trimmed)
		if err != nil {
			s.logger.Error("Failed to check username availability", zap.Error(err))
			return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to check username availability")
		}
		if taken {
			return nil, shared.NewDomainError("USERNAME_TAKEN", "That username is already taken")
		}
	}

	if err := profile.SetUsername(trimmed); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		s.logger.Error("Failed to update profile", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to save username")
	}

	tokenPair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   profile.ID,
		Email:    profile.Email,
		Username: profile.Username,
		IsAdmin:  profile.IsAdmin,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	s.logger.Info("Username set",
		zap.String("user_id", profile.ID.String()),
		zap.String("username", profile.Username))

	return &AuthResult{
		AccessToken:           tokenPair.AccessToken,
		RefreshToken:          tokenPair.RefreshToken,
		AccessTokenExpiresAt:  tokenPair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: tokenPair.RefreshTokenExpiresAt,
		TokenType:             tokenPair.TokenType,
		Profile:               toProfileInfo(profile),
	}, nil
}

// GetCurrentProfile retrieves the caller's profile.
// Returns (nil, nil) when the account no longer exists so callers can
// render a signed-out state instead of an error.
func (s *AuthService) GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*ProfileInfo, error) {
	profile, err := s.profileRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		s.logger.Error("Failed to load profile", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to load profile")
	}

	info := toProfileInfo(profile)
	return &info, nil
}

// isAdminEmail reports whether the address is on the configured admin list
func (s *AuthService) isAdminEmail(email string) bool {
	for _, admin := range s.config.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), email) {
			return true
		}
	}
	return false
}

// mapTokenError maps JWT errors to domain errors
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
	case errors.Is(err, auth.ErrInvalidToken):
		return shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.NewDomainError("TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please sign in again")
	default:
		return shared.NewDomainError("TOKEN_ERROR", "Failed to validate refresh token")
	}
}

func toProfileInfo(p *identity.Profile) ProfileInfo {
	return ProfileInfo{
		ID:       p.ID,
		Email:    p.Email,
		Username: p.Username,
		IsAdmin:  p.IsAdmin,
	}
}
