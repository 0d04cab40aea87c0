package auth

import (
	"crypto/subtle"
	"strings"
)

// Verifier checks the Authorization header against the configured
// bearer secret. The secret is fixed at construction and shared
// read-only across requests.
type Verifier struct {
	secret  string
	enabled bool
}

// NewVerifier builds a Verifier. An empty secret disables
// authentication entirely; callers should warn loudly when that
// happens outside local development.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret, enabled: secret != ""}
}

// Enabled reports whether a secret is configured.
func (v *Verifier) Enabled() bool {
	return v.enabled
}

// Verify returns true when the Authorization header carries the
// configured bearer token. Missing headers, wrong schemes, and
// mismatched tokens are all rejected the same way so callers cannot
// probe which part was wrong. The token comparison is constant time.
func (v *Verifier) Verify(authorization string) bool {
	if !v.enabled {
		return true
	}
	scheme, token, found := strings.Cut(authorization, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return false
	}
	token = strings.TrimSpace(token)
	return subtle.ConstantTimeCompare([]byte(token), []byte(v.secret)) == 1
}
