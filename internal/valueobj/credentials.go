package valueobj

import (
	"crypto/subtle"

	"github.com/javi11/magicer/internal/apperr"
)

// Credentials is a (user, pass) pair with non-empty components, compared
// only in constant time.
type Credentials struct {
	user string
	pass string
}

// NewCredentials validates that both components are non-empty.
func NewCredentials(user, pass string) (Credentials, error) {
	const op = "validate credentials"
	if user == "" || pass == "" {
		return Credentials{}, apperr.New(op, apperr.Validation, "user and pass must not be empty")
	}
	return Credentials{user: user, pass: pass}, nil
}

// Equal reports whether other matches c, comparing both components in
// constant time regardless of where a mismatch occurs.
func (c Credentials) Equal(otherUser, otherPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(c.user), []byte(otherUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(c.pass), []byte(otherPass)) == 1
	return userOK && passOK
}
