package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

type SessionInput struct {
	Collection string `validate:"required"`
}

type SessionOutput struct {
	AccountID  int64
	Email      string
	Collection string
	ExpiresAt  time.Time
}

// Session returns the claims behind the caller's token, scoped to the
// collection in the URL. A token issued for another collection is rejected.
func (s *Usecase) Session(ctx context.Context, in SessionInput) (*SessionOutput, error) {
	ctx, span := s.startSpan(ctx, "Session")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	if clm.Collection != in.Collection {
		slog.WarnContext(ctx, "token presented against a different collection",
			"token_collection", clm.Collection, "collection", in.Collection)
		return nil, goerror.NewBusiness("token was not issued for this collection", goerror.CodeForbidden)
	}

	out := &SessionOutput{
		AccountID:  clm.AccountID,
		Email:      clm.Email,
		Collection: clm.Collection,
	}
	if clm.ExpiresAt != nil {
		out.ExpiresAt = clm.ExpiresAt.Time
	}
	return out, nil
}
