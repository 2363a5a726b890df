package account

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
)

var (
	ErrNotFound           = fmt.Errorf("account: %w", apperr.ErrNotFound)
	ErrEmailTaken         = apperr.New(apperr.ErrConflict, "user already exists")
	ErrInvalidCredentials = apperr.New(apperr.ErrUnauthenticated, "invalid email or password")
	ErrSelfDelete         = apperr.Validation("cannot delete your own account")
)

const MinPasswordLength = 6

type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return apperr.Validationf("invalid email %q", email)
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return apperr.Validationf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}

func New(id, name, email, passwordHash string) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (a *Account) Touch() { a.UpdatedAt = time.Now().UTC() }

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// Identity is what a verified token asserts about its bearer.
type Identity struct {
	AccountID string
	IsAdmin   bool
}

// Owns reports whether the identity may act on a resource owned by ownerID.
func (i Identity) Owns(ownerID string) bool {
	return i.IsAdmin || (i.AccountID != "" && i.AccountID == ownerID)
}
