package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/templeparties/backend/internal/domain/shared"
)

// Username limits. The first character rule keeps handles readable on
// party cards.
const (
	MinUsernameLength = 2
	MaxUsernameLength = 30
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Profile represents a student account.
// It is the aggregate root for identity operations; the ID doubles as
// the JWT subject.
type Profile struct {
	shared.BaseAggregateRoot
	Email    string
	Username string
	IsAdmin  bool
}

// NewProfile creates a profile for a verified campus email.
// allowedDomain is matched case-insensitively against the part after "@".
func NewProfile(email, allowedDomain string) (*Profile, error) {
	normalized, err := NormalizeEmail(email, allowedDomain)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Email:             normalized,
	}

	p.AddDomainEvent(NewProfileCreatedEvent(p))

	return p, nil
}

// NormalizeEmail validates an address against the campus domain and
// returns it trimmed and lowercased.
func NormalizeEmail(email, allowedDomain string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", shared.NewDomainError("INVALID_EMAIL", "A valid email address is required")
	}
	if strings.ContainsAny(email, " \t") {
		return "", shared.NewDomainError("INVALID_EMAIL", "A valid email address is required")
	}

	domain := email[at+1:]
	if !strings.EqualFold(domain, allowedDomain) {
		return "", shared.NewDomainError("INVALID_EMAIL_DOMAIN", "A @"+allowedDomain+" email address is required")
	}

	return email, nil
}

// SetUsername sets the profile's public handle
func (p *Profile) SetUsername(username string) error {
	username = strings.TrimSpace(username)

	if len(username) < MinUsernameLength {
		return shared.NewDomainError("INVALID_USERNAME", "Username must be at least 2 characters")
	}
	if len(username) > MaxUsernameLength {
		return shared.NewDomainError("INVALID_USERNAME", "Username cannot exceed 30 characters")
	}
	if !usernameRegex.MatchString(username) {
		return shared.NewDomainError("INVALID_USERNAME", "Username may only contain letters, digits, dots, dashes and underscores")
	}

	p.Username = username
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	return nil
}

// HasUsername reports whether onboarding is complete
func (p *Profile) HasUsername() bool {
	return p.Username != ""
}

// GrantAdmin promotes the profile to the review queue
func (p *Profile) GrantAdmin() {
	if p.IsAdmin {
		return
	}
	p.IsAdmin = true
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
