package usecase_test

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

// memDB mimics the SQL repo in memory, including the two-row ambiguity
// sentinel and the expiry predicate on the OTP lookup.
type memDB struct {
	mu        sync.Mutex
	accounts  []*entity.Account
	issueLogs []entity.OTPIssueLog
	attempts  []entity.FailedAttempt
	now       func() time.Time

	setErr    error
	clearErr  error
	recordErr error
	logErr    error
}

func (d *memDB) match(a *entity.Account, collection string, kind entity.IdentifierKind, identifier string) bool {
	if a.Collection != collection {
		return false
	}
	switch kind {
	case entity.IdentifierKindEmail:
		return a.Email == identifier
	case entity.IdentifierKindUsername:
		return a.Username == identifier
	case entity.IdentifierKindPhone:
		return a.Phone == identifier
	case entity.IdentifierKindID:
		return strconv.FormatInt(a.ID, 10) == identifier
	default:
		return false
	}
}

func (d *memDB) GetAccountByIdentifier(_ context.Context, collection string, kind entity.IdentifierKind, identifier string) (*entity.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var matches []*entity.Account
	for _, a := range d.accounts {
		if d.match(a, collection, kind, identifier) {
			matches = append(matches, a)
		}
	}

	switch len(matches) {
	case 0:
		return nil, goerror.ErrNotFound
	case 1:
		cp := *matches[0]
		return &cp, nil
	default:
		return nil, goerror.ErrAmbiguous
	}
}

func (d *memDB) GetAccountWithValidOTP(_ context.Context, collection string, kind entity.IdentifierKind, identifier, otpHash string, now time.Time) (*entity.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var matches []*entity.Account
	for _, a := range d.accounts {
		if !d.match(a, collection, kind, identifier) {
			continue
		}
		if a.OTPHash == otpHash && a.OTPExpiresAt != nil && a.OTPExpiresAt.After(now) {
			matches = append(matches, a)
		}
	}

	switch len(matches) {
	case 0:
		return nil, goerror.ErrNotFound
	case 1:
		cp := *matches[0]
		return &cp, nil
	default:
		return nil, goerror.ErrAmbiguous
	}
}

func (d *memDB) SetAccountOTP(_ context.Context, in entity.OTPAssignment) error {
	if d.setErr != nil {
		return d.setErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, a := range d.accounts {
		if a.ID == in.AccountID {
			exp := in.ExpiresAt
			a.OTPHash = in.OTPHash
			a.OTPExpiresAt = &exp
			return nil
		}
	}
	return goerror.ErrNotFound
}

func (d *memDB) ClearAccountOTP(_ context.Context, accountID int64) error {
	if d.clearErr != nil {
		return d.clearErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, a := range d.accounts {
		if a.ID == accountID {
			a.OTPHash = ""
			a.OTPExpiresAt = nil
			a.LoginAttempts = 0
			a.LockUntil = nil
			return nil
		}
	}
	return goerror.ErrNotFound
}

func (d *memDB) RecordFailedAttempt(_ context.Context, in entity.FailedAttempt) error {
	if d.recordErr != nil {
		return d.recordErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.attempts = append(d.attempts, in)
	for _, a := range d.accounts {
		if a.ID == in.AccountID {
			a.LoginAttempts++
			if a.LoginAttempts >= in.MaxAttempts {
				until := d.now().Add(in.LockDuration)
				a.LockUntil = &until
			}
		}
	}
	return nil
}

func (d *memDB) CreateIssueLog(_ context.Context, in entity.OTPIssueLog) error {
	if d.logErr != nil {
		return d.logErr
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.issueLogs = append(d.issueLogs, in)
	return nil
}

func (d *memDB) account(id int64) *entity.Account {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, a := range d.accounts {
		if a.ID == id {
			cp := *a
			return &cp
		}
	}
	return nil
}

type fakeMessaging struct {
	mu     sync.Mutex
	events []usecase.OTPIssuedEvent
	err    error
}

func (f *fakeMessaging) PublishOTPIssued(_ context.Context, msg usecase.OTPIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, msg)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) Close() error { return nil }

type fakeLimiter struct {
	err  error
	keys []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string) error {
	f.keys = append(f.keys, key)
	return f.err
}

type fakeJWT struct {
	token string
	exp   time.Time
	err   error
	calls int
}

func (f *fakeJWT) Generate(int64, string, string) (string, time.Time, error) {
	f.calls++
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.token, f.exp, nil
}

func (f *fakeJWT) Verify(string) (jwt.Claims, error) {
	return jwt.Claims{}, nil
}

type staticUID struct{ id int64 }

func (s staticUID) Generate() int64 { return s.id }

var testNow = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

type fixture struct {
	db      *memDB
	mq      *fakeMessaging
	mailer  *fakeMailer
	limiter *fakeLimiter
	jwt     *fakeJWT
	gm      *goroutine.Manager
	uc      *usecase.Usecase
}

func newFixture(t *testing.T, collections usecase.Collections, accounts ...*entity.Account) *fixture {
	t.Helper()

	val, err := validator.NewV10Validator(6)
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	hm, err := hash.NewHMACSHA256("unit-test-otp-hashing-secret")
	if err != nil {
		t.Fatalf("failed to build hasher: %v", err)
	}

	cfg, err := config.NewViperFromBytes("yaml", []byte("modules:\n  otpauth:\n    default_expiry_seconds: 300\n"))
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}

	f := &fixture{
		db:      &memDB{accounts: accounts, now: func() time.Time { return testNow }},
		mq:      &fakeMessaging{},
		mailer:  &fakeMailer{},
		limiter: &fakeLimiter{},
		jwt:     &fakeJWT{token: "signed-token", exp: testNow.Add(time.Hour)},
		gm:      goroutine.NewManager(10),
	}

	f.uc = usecase.New(usecase.Dependency{
		RepoDB:        f.db,
		RepoMessaging: f.mq,
		Validator:     val,
		Config:        cfg,
		Collections:   collections,
		HMAC:          hm,
		Generator:     otp.NewNumeric(6),
		UID:           staticUID{id: 9001},
		Clock:         clock.NewStatic(testNow),
		JWT:           f.jwt,
		Mailer:        f.mailer,
		Limiter:       f.limiter,
		Instrument:    instrument.NewNoop(),
		Goroutine:     f.gm,
	})
	return f
}

func activeAccount(id int64, collection, email string) *entity.Account {
	return &entity.Account{
		ID:         id,
		Collection: collection,
		Email:      email,
		Username:   "user" + email,
		Status:     entity.AccountStatusActive,
	}
}

// requestCode issues a code and returns the plaintext for follow-up calls.
func (f *fixture) requestCode(t *testing.T, collection, identifier string) string {
	t.Helper()

	out, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
		Collection: collection,
		Identifier: identifier,
	})
	if err != nil {
		t.Fatalf("RequestOTP() error = %v", err)
	}
	if out.OTP == "" {
		t.Fatalf("RequestOTP() returned an empty code")
	}
	return out.OTP
}

func assertLoginFailure(t *testing.T, err error) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected login to fail")
	}

	gerr, ok := err.(*goerror.Error)
	if !ok {
		t.Fatalf("expected *goerror.Error, got %T: %v", err, err)
	}
	if gerr.Code() != goerror.CodeInvalidInput {
		t.Fatalf("expected CodeInvalidInput, got %s", gerr.Code())
	}
	if got := gerr.Fields()["otp"]; got != usecase.MsgLoginFailed {
		t.Fatalf("expected uniform failure message on otp field, got %q", got)
	}
}
