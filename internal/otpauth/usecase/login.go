package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type LoginInput struct {
	Collection string `validate:"required"`
	Kind       string `validate:"omitempty,identifier_kind"`
	Identifier string `validate:"required"`
	OTP        string `validate:"required,otp"`
}

type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
	Account   *entity.Account

	// HideToken asks the transport to omit the token from the response body;
	// the auth cookie is still set.
	HideToken bool
}

// Login verifies a one-time password and exchanges it for a signed token.
//
// Every verification failure, wrong code, expired code, unknown account or
// locked account, collapses into the same response so a caller learns nothing
// beyond "it did not work". Failed attempts count toward lockout when the
// collection enables it.
func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
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

	codeHash, err := s.hmac.Hash(in.OTP)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash supplied otp", "error", err)
		return nil, goerror.NewServer(err)
	}

	verified, candidate, err := s.locateWithOTP(ctx, in.Collection, kind, identifier, codeHash)
	if err != nil {
		return nil, err
	}

	if verified != nil && verified.Locked(s.clock.Now()) {
		slog.WarnContext(ctx, "login attempt against locked account", "account_id", verified.ID)
		verified = nil
	}

	if verified == nil {
		s.recordFailure(ctx, opts, candidate)
		return nil, loginFailure()
	}

	if err := s.ensureAccountUsable(ctx, verified); err != nil {
		return nil, err
	}

	acct := verified
	for i, hook := range opts.BeforeLogin {
		replacement, err := hook(ctx, acct)
		if err != nil {
			slog.WarnContext(ctx, "before-login hook vetoed login",
				"account_id", acct.ID, "hook_index", i, "error", err)
			return nil, goerror.NewBusiness(MsgLoginFailed, goerror.CodeUnauthorized)
		}
		if replacement != nil {
			acct = replacement
		}
	}

	token, expiresAt, err := s.jwt.Generate(acct.ID, acct.Email, acct.Collection)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate jwt token", "account_id", acct.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	// Clearing only after the token exists; a crash between the two leaves a
	// pending code that the deadline retires on its own.
	if err := s.repoDB.ClearAccountOTP(ctx, verified.ID); err != nil {
		slog.ErrorContext(ctx, "failed to repo clear account otp", "account_id", verified.ID, "error", err)
		return nil, goerror.NewServer(err)
	}

	for i, hook := range opts.AfterLogin {
		replacement, err := hook(ctx, acct)
		if err != nil {
			slog.ErrorContext(ctx, "after-login hook failed",
				"account_id", acct.ID, "hook_index", i, "error", err)
			continue
		}
		if replacement != nil {
			acct = replacement
		}
	}

	return &LoginOutput{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   acct,
		HideToken: opts.HideToken,
	}, nil
}

// recordFailure charges a rejected login to the candidate account when the
// collection runs with lockout enabled. Best effort; the response is the
// uniform failure either way.
func (s *Usecase) recordFailure(ctx context.Context, opts CollectionOptions, candidate *entity.Account) {
	if opts.MaxLoginAttempts <= 0 || candidate == nil {
		return
	}

	err := s.repoDB.RecordFailedAttempt(ctx, entity.FailedAttempt{
		AccountID:    candidate.ID,
		MaxAttempts:  opts.MaxLoginAttempts,
		LockDuration: opts.lockDuration(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to record failed login attempt", "account_id", candidate.ID, "error", err)
	}
}
