package validator

import "testing"

type codeForm struct {
	Code string `validate:"required,otp"`
}

type kindForm struct {
	Kind string `validate:"identifier_kind"`
}

func TestOTPRuleFollowsConfiguredLength(t *testing.T) {
	cases := []struct {
		name   string
		length int
		code   string
		valid  bool
	}{
		{"DefaultLengthAccepted", 0, "123456", true},
		{"DefaultLengthRejectsShort", 0, "12345", false},
		{"ConfiguredLengthAccepted", 8, "12345678", true},
		{"ConfiguredLengthRejectsDefault", 8, "123456", false},
		{"RejectsNonDigits", 8, "1234567a", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := NewV10Validator(tc.length)
			if err != nil {
				t.Fatalf("NewV10Validator() error = %v", err)
			}

			err = v.Validate(codeForm{Code: tc.code})
			if tc.valid && err != nil {
				t.Fatalf("expected %q to pass with length %d, got %v", tc.code, tc.length, err)
			}
			if !tc.valid && err == nil {
				t.Fatalf("expected %q to fail with length %d", tc.code, tc.length)
			}
		})
	}
}

func TestIdentifierKindRule(t *testing.T) {
	v, err := NewV10Validator(0)
	if err != nil {
		t.Fatalf("NewV10Validator() error = %v", err)
	}

	for _, kind := range []string{"email", "id", "username", "phone"} {
		if err := v.Validate(kindForm{Kind: kind}); err != nil {
			t.Fatalf("expected kind %q to pass, got %v", kind, err)
		}
	}

	if err := v.Validate(kindForm{Kind: "passkey"}); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}
