// Package bbscrypt hashes and verifies the passwords internal/bbsuser stores
// (Record.Password) and internal/bbssession checks at login. The teacher's
// crypto.go wraps a single hash primitive (Keccak256) behind small pure
// functions; bbscrypt follows that same shape with bcrypt standing in for
// Keccak256, since a login password needs a slow, salted one-way hash
// instead of a fast content-addressing digest.
package bbscrypt

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches bcrypt's recommended work factor; raising it slows
// every login by roughly 2x per increment, so it is not tied to PCBoard's
// security-level scale.
const DefaultCost = bcrypt.DefaultCost

// ErrMismatch is returned by VerifyPassword when plain does not match hash.
var ErrMismatch = errors.New("bbscrypt: password does not match")

// HashPassword returns a bcrypt hash of plain, suitable for storing in
// bbsuser.Record.Password.
func HashPassword(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain hashes to hash, returning
// ErrMismatch (not bcrypt's own sentinel) on a wrong password so callers can
// match on a single stable error regardless of bcrypt's internal versioning.
func VerifyPassword(hash, plain string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	return err
}
