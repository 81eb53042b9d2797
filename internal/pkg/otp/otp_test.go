package otp

import "testing"

func TestNumericGenerate(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		g := NewNumeric(length)

		code, err := g.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if len(code) != length {
			t.Fatalf("expected %d digits, got %q", length, code)
		}
		for _, c := range code {
			if c < '0' || c > '9' {
				t.Fatalf("expected only digits, got %q", code)
			}
		}
	}
}

func TestNumericDefaultLength(t *testing.T) {
	code, err := NewNumeric(0).Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(code) != DefaultLength {
		t.Fatalf("expected default length %d, got %q", DefaultLength, code)
	}
}
