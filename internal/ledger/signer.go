package ledger

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const signaturePrefix = "hmac-sha256:"

// ErrWeakKey is returned for signing keys shorter than 32 bytes.
var ErrWeakKey = errors.New("signing key must be at least 32 bytes")

// Signer signs ledger records with HMAC-SHA256.
type Signer struct {
	key []byte
}

// NewSigner accepts a raw key of 32+ bytes, or 64+ hex characters that
// decode to 32+ bytes.
func NewSigner(key string) (*Signer, error) {
	raw, err := decodeKey(key)
	if err != nil {
		return nil, err
	}
	return &Signer{key: raw}, nil
}

func decodeKey(key string) ([]byte, error) {
	if len(key) >= 64 && len(key)%2 == 0 && strings.Trim(key, "0123456789abcdefABCDEF") == "" {
		raw, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("decoding hex signing key: %w", err)
		}
		return raw, nil
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("%w (got %d)", ErrWeakKey, len(key))
	}
	return []byte(key), nil
}

// Sign returns "hmac-sha256:<hex>" for data.
func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature was produced by Sign for data.
func (s *Signer) Verify(data []byte, signature string) bool {
	return hmac.Equal([]byte(s.Sign(data)), []byte(signature))
}
