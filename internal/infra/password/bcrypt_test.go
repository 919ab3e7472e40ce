package password

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	digest, err := h.Hash("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if digest == "hunter22" {
		t.Fatalf("digest must not be the plain password")
	}
	if !h.Verify("hunter22", digest) {
		t.Fatalf("expected password to verify")
	}
	if h.Verify("hunter23", digest) {
		t.Fatalf("wrong password verified")
	}
	if h.Verify("hunter22", "not-a-hash") {
		t.Fatalf("garbage digest verified")
	}
}

func TestBcryptHasherSalts(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	a, _ := h.Hash("same-password")
	b, _ := h.Hash("same-password")
	if a == b {
		t.Fatalf("expected distinct salted digests")
	}
}
