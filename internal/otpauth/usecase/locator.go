package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// locate resolves an account by identifier and normalizes repo sentinels:
// ambiguous matches are an integrity fault and surface as server errors,
// a miss surfaces as goerror.ErrNotFound for the caller to interpret.
func (s *Usecase) locate(ctx context.Context, collection string, kind entity.IdentifierKind, identifier string) (*entity.Account, error) {
	acct, err := s.repoDB.GetAccountByIdentifier(ctx, collection, kind, identifier)
	if errors.Is(err, goerror.ErrAmbiguous) {
		slog.ErrorContext(ctx, "identifier matched more than one account",
			"collection", collection, "kind", kind.String())
		return nil, goerror.NewServer(err)
	}
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account by identifier",
			"collection", collection, "kind", kind.String(), "error", err)
		return nil, goerror.NewServer(err)
	}

	return acct, nil
}

// locateWithOTP runs the combined verification lookup: the plain lookup
// supplies the candidate, the OTP-scoped lookup must return the same account.
//
// The candidate is returned even when verification fails so the caller can
// record a failed attempt against it. verified is nil whenever the supplied
// code does not prove ownership of exactly the candidate account.
func (s *Usecase) locateWithOTP(ctx context.Context, collection string, kind entity.IdentifierKind, identifier, otpHash string) (verified, candidate *entity.Account, err error) {
	candidate, err = s.locate(ctx, collection, kind, identifier)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	acct, err := s.repoDB.GetAccountWithValidOTP(ctx, collection, kind, identifier, otpHash, s.clock.Now())
	if errors.Is(err, goerror.ErrNotFound) || errors.Is(err, goerror.ErrAmbiguous) {
		return nil, candidate, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get account with otp",
			"collection", collection, "kind", kind.String(), "error", err)
		return nil, candidate, goerror.NewServer(err)
	}

	if acct.ID != candidate.ID {
		slog.ErrorContext(ctx, "otp lookup resolved a different account than the identifier lookup",
			"collection", collection, "candidate_id", candidate.ID, "otp_account_id", acct.ID)
		return nil, candidate, nil
	}

	return acct, candidate, nil
}
