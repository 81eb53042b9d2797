package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/delivery/usecase"
)

type uc interface {
	ConsumeOTPIssued(ctx context.Context, in usecase.ConsumeOTPIssuedInput) error
}
