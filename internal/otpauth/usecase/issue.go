package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/ratelimit"
)

type RequestOTPInput struct {
	Collection string `validate:"required"`
	Kind       string `validate:"omitempty,identifier_kind"`
	Identifier string `validate:"required"`

	// Expiry overrides the collection expiry when positive. Internal callers
	// only; the HTTP layer never sets it.
	Expiry time.Duration

	// RequestIP is recorded on the audit row.
	RequestIP string
}

type RequestOTPOutput struct {
	// OTP is the plaintext code, for internal callers and hooks only.
	OTP       string
	ExpiresAt time.Time
	Account   *entity.Account
}

// RequestOTP generates a one-time password for the identified account,
// stores its keyed hash with a deadline, delivers it by email unless the
// collection opts out, and notifies hooks and the event bus.
//
// Re-requesting silently replaces any outstanding code for the account.
func (s *Usecase) RequestOTP(ctx context.Context, in RequestOTPInput) (*RequestOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestOTP")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	opts, err := s.collectionOptions(ctx, in.Collection)
	if err != nil {
		return nil, err
	}

	kind := resolveKind(in.Kind, in.Identifier)
	identifier := normalizeIdentifier(kind, in.Identifier)

	if err := s.limiter.Allow(ctx, in.Collection+":"+identifier); err != nil {
		if errors.Is(err, ratelimit.ErrLimitExceeded) {
			slog.WarnContext(ctx, "otp request rate limit hit", "collection", in.Collection, "kind", kind.String())
			return nil, goerror.NewBusiness("too many requests, try again later", goerror.CodeTooManyRequest)
		}
		slog.ErrorContext(ctx, "failed to check otp request rate limit", "error", err)
		return nil, goerror.NewServer(err)
	}

	acct, err := s.locate(ctx, in.Collection, kind, identifier)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "otp requested for unknown account", "collection", in.Collection, "kind", kind.String())
		return nil, goerror.NewBusiness("account not found", goerror.CodeNotFound)
	}
	if err != nil {
		return nil, err
	}

	if err := s.ensureAccountUsable(ctx, acct); err != nil {
		return nil, err
	}

	code, err := s.generator.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate otp", "account_id", acct.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash otp", "account_id", acct.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.otpExpiry(in.Expiry, opts))

	if err := s.repoDB.SetAccountOTP(ctx, entity.OTPAssignment{
		AccountID: acct.ID,
		OTPHash:   codeHash,
		ExpiresAt: expiresAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo set account otp",
			"account_id", acct.ID, "kind", kind.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	ev := HookEvent{
		IssueID:    s.uid.Generate(),
		Collection: in.Collection,
		OTP:        code,
		IssuedAt:   now,
		ExpiresAt:  expiresAt,
		Account:    acct,
	}

	if !opts.DisableEmail {
		if err := s.sendOTPEmail(ctx, opts, ev); err != nil {
			return nil, err
		}
		ev.EmailSent = true
	}

	for i, hook := range opts.AfterIssue {
		if err := hook(ctx, ev); err != nil {
			slog.ErrorContext(ctx, "after-issue hook failed",
				"collection", in.Collection, "hook_index", i, "error", err)
		}
	}

	if err := s.repoMessaging.PublishOTPIssued(ctx, OTPIssuedEvent{
		IssueID:    ev.IssueID,
		Collection: in.Collection,
		AccountID:  acct.ID,
		Email:      acct.Email,
		Phone:      acct.Phone,
		Code:       code,
		ExpiresAt:  expiresAt,
		EmailSent:  ev.EmailSent,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish otp issued event", "account_id", acct.ID, "error", err)
	}

	s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		err := s.repoDB.CreateIssueLog(ctx, entity.OTPIssueLog{
			ID:         ev.IssueID,
			Collection: in.Collection,
			AccountID:  acct.ID,
			Kind:       kind,
			OTPHash:    codeHash,
			ExpiresAt:  expiresAt,
			RequestIP:  in.RequestIP,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to write otp issue audit log", "account_id", acct.ID, "error", err)
		}
		return err
	})

	return &RequestOTPOutput{
		OTP:       code,
		ExpiresAt: expiresAt,
		Account:   acct,
	}, nil
}

func (s *Usecase) sendOTPEmail(ctx context.Context, opts CollectionOptions, ev HookEvent) error {
	if ev.Account.Email == "" {
		slog.ErrorContext(ctx, "account has no email address for otp delivery", "account_id", ev.Account.ID)
		return goerror.NewServer(errors.New("otpauth: account has no email address"))
	}

	err := s.mailer.Send(ctx, mail.Message{
		To:       []string{ev.Account.Email},
		Subject:  opts.emailSubject(ev),
		TextBody: opts.emailBody(ev),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to send otp email", "account_id", ev.Account.ID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

// otpExpiry picks the code lifetime: request override, then collection
// override, then deployment config, then DefaultExpiry.
func (s *Usecase) otpExpiry(override time.Duration, opts CollectionOptions) time.Duration {
	if override > 0 {
		return override
	}
	if opts.Expiry > 0 {
		return opts.Expiry
	}
	if exp := s.cfg.GetSecond("modules.otpauth.default_expiry_seconds"); exp > 0 {
		return exp
	}
	return DefaultExpiry
}

// resolveKind honors an explicit kind name and falls back to detection from
// the identifier's shape.
func resolveKind(name, identifier string) entity.IdentifierKind {
	if name != "" {
		return entity.IdentifierKindFromName(name)
	}
	return entity.DetectIdentifierKind(identifier)
}

func normalizeIdentifier(kind entity.IdentifierKind, identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if kind == entity.IdentifierKindEmail {
		return strings.ToLower(identifier)
	}
	return identifier
}
