package shop

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// Association keys use an alphabet without look-alike characters (0/O, 1/I).
const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const keyLength = 8

// NewAssociationKey returns a random key formatted as XXXX-XXXX.
func NewAssociationKey() (string, error) {
	b := make([]byte, keyLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating association key: %w", err)
	}
	out := make([]byte, 0, keyLength+1)
	for i, v := range b {
		if i == keyLength/2 {
			out = append(out, '-')
		}
		out = append(out, keyAlphabet[int(v)%len(keyAlphabet)])
	}
	return string(out), nil
}

// HashAssociationKey hashes the normalized key with the given salt.
func HashAssociationKey(salt, key string) string {
	sum := sha256.Sum256([]byte(salt + ":" + normalizeKey(key)))
	return hex.EncodeToString(sum[:])
}

func normalizeKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(key)))
}

// SetAssociationKey stores a fresh salt and the hash of key on the vehicle.
// The plain key is never persisted.
func (v *Vehicle) SetAssociationKey(key string) error {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}
	v.KeySalt = hex.EncodeToString(salt)
	v.KeyHash = HashAssociationKey(v.KeySalt, key)
	return nil
}

// VerifyAssociationKey compares key against the stored hash in constant time.
func (v *Vehicle) VerifyAssociationKey(key string) bool {
	if v.KeyHash == "" || strings.TrimSpace(key) == "" {
		return false
	}
	got := HashAssociationKey(v.KeySalt, key)
	return subtle.ConstantTimeCompare([]byte(got), []byte(v.KeyHash)) == 1
}
