package hash

import "testing"

func TestHMACSHA256(t *testing.T) {
	h, err := NewHMACSHA256("test-secret")
	if err != nil {
		t.Fatalf("NewHMACSHA256() error = %v", err)
	}

	a, err := h.Hash("123456")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	b, _ := h.Hash("123456")
	if a != b {
		t.Fatalf("same input must hash identically, got %q and %q", a, b)
	}

	c, _ := h.Hash("654321")
	if a == c {
		t.Fatalf("different inputs must not collide")
	}

	other, _ := NewHMACSHA256("another-secret")
	d, _ := other.Hash("123456")
	if a == d {
		t.Fatalf("different keys must produce different digests")
	}
}

func TestHMACSHA256EmptySecret(t *testing.T) {
	if _, err := NewHMACSHA256(""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
