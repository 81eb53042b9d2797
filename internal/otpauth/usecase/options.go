package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
)

// DefaultExpiry is how long a one-time password stays valid when neither the
// request nor the collection configures an override.
const DefaultExpiry = 5 * time.Minute

// DefaultMaxLoginAttempts is the failed-login budget before an account is
// locked, when lockout is enabled and not configured.
const DefaultMaxLoginAttempts int32 = 5

// DefaultLockDuration is how long a locked account stays locked.
const DefaultLockDuration = 10 * time.Minute

// HookEvent is handed to after-issue hooks once a code has been stored.
type HookEvent struct {
	IssueID    int64
	Collection string
	OTP        string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	EmailSent  bool
	Account    *entity.Account
}

// AfterIssueHook observes a stored code. Hooks run in registration order;
// a failing hook is logged and does not fail the issuance.
type AfterIssueHook func(ctx context.Context, ev HookEvent) error

// LoginHook runs around token issuance. It may return a replacement account
// (nil keeps the current one) or an error to veto the login.
type LoginHook func(ctx context.Context, acct *entity.Account) (*entity.Account, error)

// CollectionOptions tunes the OTP flow for one account collection.
type CollectionOptions struct {
	// Expiry overrides DefaultExpiry when positive.
	Expiry time.Duration

	// DisableEmail skips sending the code by email; hooks remain the only
	// delivery path.
	DisableEmail bool

	// HideToken omits the token from the login response body; the cookie is
	// still set.
	HideToken bool

	// MaxLoginAttempts enables lockout when positive.
	MaxLoginAttempts int32

	// LockDuration overrides DefaultLockDuration when positive.
	LockDuration time.Duration

	// EmailSubject builds the subject line for the code email.
	EmailSubject func(ev HookEvent) string

	// EmailBody builds the plain-text body for the code email.
	EmailBody func(ev HookEvent) string

	// AfterIssue hooks run after the code is stored, in order.
	AfterIssue []AfterIssueHook

	// BeforeLogin hooks run after verification and before token issuance.
	BeforeLogin []LoginHook

	// AfterLogin hooks run after token issuance.
	AfterLogin []LoginHook
}

func (o CollectionOptions) lockDuration() time.Duration {
	if o.LockDuration > 0 {
		return o.LockDuration
	}
	return DefaultLockDuration
}

func (o CollectionOptions) emailSubject(ev HookEvent) string {
	if o.EmailSubject != nil {
		return o.EmailSubject(ev)
	}
	return "Your one-time password"
}

func (o CollectionOptions) emailBody(ev HookEvent) string {
	if o.EmailBody != nil {
		return o.EmailBody(ev)
	}
	return fmt.Sprintf("Your one-time password is %s. It expires in %d minutes.",
		ev.OTP, int(ev.ExpiresAt.Sub(ev.IssuedAt).Round(time.Minute).Minutes()))
}

// Collections maps a collection slug to its options. Only enrolled
// collections accept OTP traffic.
type Collections map[string]CollectionOptions

// Get returns the options for slug and whether the collection is enrolled.
func (c Collections) Get(slug string) (CollectionOptions, bool) {
	opts, ok := c[slug]
	return opts, ok
}
