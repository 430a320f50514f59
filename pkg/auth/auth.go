package auth

import (
	"crypto/subtle"
	"errors"
	"sort"

	"rfqdash/pkg/rfq"
)

var ErrAuthFailure = errors.New("incorrect password")

// Authenticator maps submitted passwords to an authorization scope. Passwords
// are compared as plaintext; this is a visibility gate, not a security boundary.
type Authenticator struct {
	Global    string
	Divisions map[string]string // division -> password
}

func New(global string, divisions map[string]string) *Authenticator {
	return &Authenticator{Global: global, Divisions: divisions}
}

// Enabled reports whether any password is configured at all.
func (a *Authenticator) Enabled() bool {
	if a == nil {
		return false
	}
	if a.Global != "" {
		return true
	}
	for _, pw := range a.Divisions {
		if pw != "" {
			return true
		}
	}
	return false
}

func (a *Authenticator) Authenticate(password string) (rfq.Scope, error) {
	if password == "" || !a.Enabled() {
		return rfq.Scope{}, ErrAuthFailure
	}
	if equal(password, a.Global) {
		return rfq.Unrestricted(), nil
	}
	divisions := make([]string, 0, len(a.Divisions))
	for d := range a.Divisions {
		divisions = append(divisions, d)
	}
	sort.Strings(divisions)
	for _, d := range divisions {
		if equal(password, a.Divisions[d]) {
			return rfq.LockedTo(d), nil
		}
	}
	return rfq.Scope{}, ErrAuthFailure
}

func equal(a, b string) bool {
	if b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
