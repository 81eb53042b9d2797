package entity

import "testing"

func TestDetectIdentifierKind(t *testing.T) {
	cases := []struct {
		identifier string
		want       IdentifierKind
	}{
		{"john@example.com", IdentifierKindEmail},
		{"weird@", IdentifierKindEmail},
		{"+15550001111", IdentifierKindPhone},
		{"15550001111", IdentifierKindPhone},
		{"1234", IdentifierKindUsername}, // too short for a phone number
		{"john_doe", IdentifierKindUsername},
		{"john123", IdentifierKindUsername},
		{"  john@example.com  ", IdentifierKindEmail},
		{"", IdentifierKindUnknown},
		{"   ", IdentifierKindUnknown},
	}

	for _, tc := range cases {
		if got := DetectIdentifierKind(tc.identifier); got != tc.want {
			t.Errorf("DetectIdentifierKind(%q) = %s, want %s", tc.identifier, got, tc.want)
		}
	}
}

func TestIdentifierKindFromName(t *testing.T) {
	cases := []struct {
		name string
		want IdentifierKind
	}{
		{"email", IdentifierKindEmail},
		{"Email", IdentifierKindEmail},
		{" USERNAME ", IdentifierKindUsername},
		{"phone", IdentifierKindPhone},
		{"id", IdentifierKindID},
		{"ID", IdentifierKindID},
		{"passkey", IdentifierKindUnknown},
		{"", IdentifierKindUnknown},
	}

	for _, tc := range cases {
		if got := IdentifierKindFromName(tc.name); got != tc.want {
			t.Errorf("IdentifierKindFromName(%q) = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestAccountStatusEnsure(t *testing.T) {
	if got := AccountStatus(99).Ensure(); got != AccountStatusUnknown {
		t.Errorf("Ensure() on out-of-range status = %s, want Unknown", got)
	}
	if got := AccountStatusActive.Ensure(); got != AccountStatusActive {
		t.Errorf("Ensure() on Active = %s, want Active", got)
	}
}
