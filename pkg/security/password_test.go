package security_test

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/nochance19900208-source/Real-Estate/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if hash == "" {
		t.Fatal("HashPassword returned empty string")
	}

	if !security.VerifyPassword("very-secure-password", hash) {
		t.Fatal("VerifyPassword failed for the correct password")
	}
	if security.VerifyPassword("bogus-password", hash) {
		t.Fatal("VerifyPassword returned true for incorrect password")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := security.HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestLongPasswordsRoundTrip(t *testing.T) {
	long := strings.Repeat("x", 200)
	hash, err := security.HashPassword(long)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if !security.VerifyPassword(long, hash) {
		t.Fatal("VerifyPassword failed for long password")
	}
	if security.VerifyPassword(strings.Repeat("x", 199), hash) {
		t.Fatal("VerifyPassword matched a different long password")
	}
}

func TestPasswordsDifferingPastBcryptCeilingAreDistinct(t *testing.T) {
	base := strings.Repeat("a", 72)
	hash, err := security.HashPassword(base + "1")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if security.VerifyPassword(base+"2", hash) {
		t.Fatal("passwords differing only past byte 72 must not collide")
	}
}

func TestVerifyPasswordFallbackFormat(t *testing.T) {
	salt := "00112233445566778899aabbccddeeff"
	digest := sha256.Sum256([]byte("hunter2" + salt))
	encoded := fmt.Sprintf("sha256:%s:%s", salt, hex.EncodeToString(digest[:]))

	if !security.VerifyPassword("hunter2", encoded) {
		t.Fatal("VerifyPassword failed for fallback hash")
	}
	if security.VerifyPassword("hunter3", encoded) {
		t.Fatal("VerifyPassword matched wrong password against fallback hash")
	}
	if security.VerifyPassword("hunter2", "sha256:onlyonepart") {
		t.Fatal("malformed fallback hash must not verify")
	}
}
