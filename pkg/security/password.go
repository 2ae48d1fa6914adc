package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt only reads the first 72 bytes of its input, so longer passwords are
// pre-digested to a sha256 hex string before hashing.
const bcryptInputCeiling = 72

const fallbackPrefix = "sha256"

// ErrInvalidHash signals a malformed stored credential.
var ErrInvalidHash = fmt.Errorf("invalid password hash")

// HashPassword hashes the password with bcrypt. If bcrypt itself fails, it
// falls back to a salted sha256 in the form "sha256:<salt-hex>:<digest-hex>".
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	input := digestIfLong(password)
	hash, err := bcrypt.GenerateFromPassword([]byte(input), bcrypt.DefaultCost)
	if err == nil {
		return string(hash), nil
	}

	salt := make([]byte, 16)
	if _, randErr := rand.Read(salt); randErr != nil {
		return "", fmt.Errorf("generate salt: %w", randErr)
	}
	saltHex := hex.EncodeToString(salt)
	digest := sha256.Sum256([]byte(password + saltHex))
	return fmt.Sprintf("%s:%s:%s", fallbackPrefix, saltHex, hex.EncodeToString(digest[:])), nil
}

// VerifyPassword reports whether the password matches the stored hash. The
// result carries no hint about why a mismatch happened.
func VerifyPassword(password, encoded string) bool {
	if password == "" || encoded == "" {
		return false
	}

	if strings.HasPrefix(encoded, fallbackPrefix+":") {
		parts := strings.Split(encoded, ":")
		if len(parts) != 3 {
			return false
		}
		digest := sha256.Sum256([]byte(password + parts[1]))
		return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(digest[:])), []byte(parts[2])) == 1
	}

	input := digestIfLong(password)
	return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(input)) == nil
}

func digestIfLong(password string) string {
	if len(password) <= bcryptInputCeiling {
		return password
	}
	digest := sha256.Sum256([]byte(password))
	return hex.EncodeToString(digest[:])
}
