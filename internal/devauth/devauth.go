package devauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// KeyLength is the truncated length of a derived auth key. Keys are typed
// by operators during device setup, so they stay short.
const KeyLength = 16

const secretBytes = 32

// Authenticator derives and verifies per-device auth keys. It holds no
// state: the key is a pure function of the configured prefix and the
// device serial number, stable across restarts.
type Authenticator struct {
	keyPrefix string
}

func New(keyPrefix string) *Authenticator {
	return &Authenticator{keyPrefix: keyPrefix}
}

// DeriveKey computes the auth key for a serial number.
func (a *Authenticator) DeriveKey(serialNumber string) string {
	sum := sha256.Sum256([]byte(a.keyPrefix + serialNumber))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

// Verify reports whether the supplied key matches the derived key for the
// serial number. A mismatch is an expected outcome, not an error.
func (a *Authenticator) Verify(serialNumber, suppliedKey string) bool {
	expected := a.DeriveKey(serialNumber)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(suppliedKey)) == 1
}

// NewRegistrationSecret returns a fresh opaque registration secret. It is
// handed back to a controller on registration and rotated whenever the
// device returns to the unclaimed state.
func NewRegistrationSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
