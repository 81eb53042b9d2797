package entity

import "time"

// Account is an authenticatable record inside a collection.
//
// A deployment can serve several collections (customers, admins, couriers)
// from the same table; Collection scopes every lookup.
type Account struct {
	ID         int64
	Collection string
	Email      string
	Username   string
	Phone      string
	Status     AccountStatus

	OTPHash       string
	OTPExpiresAt  *time.Time
	LoginAttempts int32
	LockUntil     *time.Time
}

// Locked reports whether the account is locked out at the given time.
func (a Account) Locked(now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// OTPIssueLog is an audit record written whenever a code is generated.
//
// The code itself is never stored here, only its hash.
type OTPIssueLog struct {
	ID         int64
	Collection string
	AccountID  int64
	Kind       IdentifierKind
	OTPHash    string
	ExpiresAt  time.Time
	RequestIP  string
	CreatedAt  time.Time
}

// OTPAssignment carries the hashed code and its deadline for a field-scoped
// account update.
type OTPAssignment struct {
	AccountID int64
	OTPHash   string
	ExpiresAt time.Time
}

// FailedAttempt records a rejected login and the lock policy to apply.
type FailedAttempt struct {
	AccountID    int64
	MaxAttempts  int32
	LockDuration time.Duration
}
