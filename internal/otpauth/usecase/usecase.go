package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/ratelimit"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

// MsgLoginFailed is the single user-facing message for every login failure:
// unknown account, wrong code, expired code, locked account. One message so
// responses leak nothing about which check failed.
const MsgLoginFailed = "Failed logging in with one-time password."

// OTPIssuedEvent describes a stored code for downstream delivery channels.
type OTPIssuedEvent struct {
	IssueID    int64
	Collection string
	AccountID  int64
	Email      string
	Phone      string
	Code       string
	ExpiresAt  time.Time
	EmailSent  bool
}

type repoMessaging interface {
	PublishOTPIssued(ctx context.Context, msg OTPIssuedEvent) error
}

type repoDB interface {
	GetAccountByIdentifier(ctx context.Context, collection string, kind entity.IdentifierKind, identifier string) (*entity.Account, error)
	GetAccountWithValidOTP(ctx context.Context, collection string, kind entity.IdentifierKind, identifier, otpHash string, now time.Time) (*entity.Account, error)

	SetAccountOTP(ctx context.Context, in entity.OTPAssignment) error
	ClearAccountOTP(ctx context.Context, accountID int64) error
	RecordFailedAttempt(ctx context.Context, in entity.FailedAttempt) error

	CreateIssueLog(ctx context.Context, in entity.OTPIssueLog) error
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	validator     validator.Validator
	cfg           config.Config
	collections   Collections
	hmac          hash.Hash
	generator     otp.Generator
	uid           uid.NumberID
	clock         clock.Clocker
	jwt           jwt.JWT
	mailer        mail.Mail
	limiter       ratelimit.Limiter
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Config        config.Config
	Collections   Collections
	HMAC          hash.Hash
	Generator     otp.Generator
	UID           uid.NumberID
	Clock         clock.Clocker
	JWT           jwt.JWT
	Mailer        mail.Mail
	Limiter       ratelimit.Limiter
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		cfg:           dep.Config,
		collections:   dep.Collections,
		hmac:          dep.HMAC,
		generator:     dep.Generator,
		uid:           dep.UID,
		clock:         dep.Clock,
		jwt:           dep.JWT,
		mailer:        dep.Mailer,
		limiter:       dep.Limiter,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("otpauth.usecase").Start(ctx, name)
}

// collectionOptions resolves the options for an enrolled collection, or a
// not-found error for a slug this deployment does not serve.
func (s *Usecase) collectionOptions(ctx context.Context, slug string) (CollectionOptions, error) {
	opts, ok := s.collections.Get(slug)
	if !ok {
		slog.WarnContext(ctx, "collection is not enrolled for otp login", "collection", slug)
		return CollectionOptions{}, goerror.NewBusiness("collection not found", goerror.CodeNotFound)
	}
	return opts, nil
}

// loginFailure is the uniform verification outcome, a field-scoped
// validation error on the otp field.
func loginFailure() error {
	return goerror.NewInvalidInput(nil, "otp", MsgLoginFailed)
}

func (s *Usecase) ensureAccountUsable(ctx context.Context, acct *entity.Account) error {
	switch acct.Status.Ensure() {
	case entity.AccountStatusActive:
		return nil

	case entity.AccountStatusBanned:
		slog.WarnContext(ctx, "account is banned", "account_id", acct.ID)
		return goerror.NewBusiness("account is banned", goerror.CodeForbidden)

	case entity.AccountStatusInactive:
		slog.WarnContext(ctx, "account is deactivated", "account_id", acct.ID)
		return goerror.NewBusiness("account is deactivated", goerror.CodeForbidden)

	default:
		slog.WarnContext(ctx, "account status is unrecognized", "account_id", acct.ID)
		return goerror.NewBusiness("account status is unrecognized", goerror.CodeForbidden)
	}
}
