package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	digest, err := hasher.Hash("correct horse battery")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if digest == "correct horse battery" {
		t.Fatal("digest must not equal the password")
	}

	ok, err := hasher.Verify("correct horse battery", digest)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !ok {
		t.Error("Verify() = false for the right password")
	}

	ok, err = hasher.Verify("wrong password!", digest)
	if err != nil {
		t.Fatalf("Verify() error = %v, mismatch must not be an error", err)
	}
	if ok {
		t.Error("Verify() = true for the wrong password")
	}
}

func TestPasswordHasher_MinLength(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{strings.Repeat("x", 64), false},
	}
	for _, tt := range tests {
		_, err := hasher.Hash(tt.password)
		if tt.wantErr && !errors.Is(err, ErrPasswordTooShort) {
			t.Errorf("Hash(%d chars) error = %v, want ErrPasswordTooShort", len(tt.password), err)
		}
		if !tt.wantErr && err != nil {
			t.Errorf("Hash(%d chars) error = %v", len(tt.password), err)
		}
	}
}

func TestPasswordHasher_MalformedDigest(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	ok, err := hasher.Verify("whatever1", "not-a-bcrypt-digest")
	if err == nil {
		t.Error("Verify() with malformed digest should error")
	}
	if ok {
		t.Error("Verify() = true with malformed digest")
	}
}

func TestPasswordHasher_DefaultCost(t *testing.T) {
	hasher := NewPasswordHasher(0)
	if hasher.cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want bcrypt.DefaultCost", hasher.cost)
	}
}
