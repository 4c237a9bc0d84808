package registry

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewRegistrationID returns a globally unique identifier of the form
// "srv_" followed by 16 hex characters drawn from a CSPRNG.
func NewRegistrationID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("registry: generate registration id: %w", err)
	}
	return "srv_" + hex.EncodeToString(buf), nil
}
