package entity

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrAccountStatusUnknown = errors.New("otpauth: account status is unknown")
	ErrAccountStatusBanned  = errors.New("otpauth: account status is banned")
)

type AccountStatus int16

const (
	// AccountStatusUnknown is mean status is not known / not set.
	AccountStatusUnknown AccountStatus = 0

	// AccountStatusActive mean account is allowed to log in.
	AccountStatusActive AccountStatus = 1

	// AccountStatusBanned mean account is blocked from using the app (policy/abuse/etc).
	AccountStatusBanned AccountStatus = 2

	// AccountStatusInactive mean account is not currently active (e.g., deactivated, closed).
	AccountStatusInactive AccountStatus = 3
)

func (as AccountStatus) String() string {
	switch as {
	case AccountStatusActive:
		return "Active"
	case AccountStatusBanned:
		return "Banned"
	case AccountStatusInactive:
		return "Inactive"
	default:
		return "Unknown"
	}
}

func (as AccountStatus) Ensure() AccountStatus {
	switch as {
	case AccountStatusActive, AccountStatusBanned, AccountStatusInactive:
		return as
	default:
		return AccountStatusUnknown
	}
}

// IdentifierKind names which account field an identifier is matched against.
type IdentifierKind int16

const (
	IdentifierKindUnknown  IdentifierKind = 0
	IdentifierKindEmail    IdentifierKind = 1
	IdentifierKindUsername IdentifierKind = 2
	IdentifierKindPhone    IdentifierKind = 3
	IdentifierKindID       IdentifierKind = 4
)

func (ik IdentifierKind) String() string {
	switch ik {
	case IdentifierKindEmail:
		return "Email"
	case IdentifierKindUsername:
		return "Username"
	case IdentifierKindPhone:
		return "Phone"
	case IdentifierKindID:
		return "ID"
	default:
		return "Unknown"
	}
}

// IdentifierKindFromName parses the wire name of an identifier kind.
func IdentifierKindFromName(name string) IdentifierKind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "email":
		return IdentifierKindEmail
	case "username":
		return IdentifierKindUsername
	case "phone":
		return IdentifierKindPhone
	case "id":
		return IdentifierKindID
	default:
		return IdentifierKindUnknown
	}
}

var rePhoneIdentifier = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// DetectIdentifierKind classifies a raw login identifier.
//
// Anything with an "@" is treated as an email, a digits-only value as a phone
// number, and everything else as a username. An account id has the same shape
// as a phone number, so id lookups require an explicit kind. The caller
// normalizes the value first (trim, lowercase for email).
func DetectIdentifierKind(identifier string) IdentifierKind {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return IdentifierKindUnknown
	}
	if strings.Contains(identifier, "@") {
		return IdentifierKindEmail
	}
	if rePhoneIdentifier.MatchString(identifier) {
		return IdentifierKindPhone
	}
	return IdentifierKindUsername
}
