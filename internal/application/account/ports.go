package account

import domain "github.com/Zhima-Mochi/sportsphere/internal/domain/account"

// PasswordHasher hashes and checks passwords. Compare returns an error on mismatch.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Issue(id domain.Identity) (string, error)
	Verify(token string) (domain.Identity, error)
}
