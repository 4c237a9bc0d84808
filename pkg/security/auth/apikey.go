package auth

import "crypto/subtle"

// Validator checks presented credentials against the single process-wide
// admin API key. The gateway has exactly one administrative credential, so
// unlike a multi-tenant key store this holds no lookup table and no TTLs.
type Validator struct {
	key []byte
}

// NewValidator creates a Validator bound to the configured admin key.
// Callers are expected to have already rejected keys shorter than the
// minimum length during config loading.
func NewValidator(adminKey string) *Validator {
	return &Validator{key: []byte(adminKey)}
}

// Validate reports whether candidate matches the configured admin key.
// A candidate of a different length is rejected immediately; for an
// equal-length candidate the comparison runs in constant time to avoid
// leaking prefix information through timing.
func (v *Validator) Validate(candidate string) bool {
	if len(candidate) != len(v.key) {
		return false
	}
	return subtle.ConstantTimeCompare(v.key, []byte(candidate)) == 1
}
