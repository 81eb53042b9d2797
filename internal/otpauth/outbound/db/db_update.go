package db

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

// SetAccountOTP writes the hashed code and its deadline on the account.
//
// Only the two OTP columns are touched so concurrent profile writes are not
// overwritten.
func (s *DB) SetAccountOTP(ctx context.Context, in entity.OTPAssignment) (err error) {
	ctx, span := s.startSpan(ctx, "SetAccountOTP")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
UPDATE accounts
SET otp_hash = $2, otp_expires_at = $3, updated_at = now()
WHERE id = $1`, in.AccountID, in.OTPHash, in.ExpiresAt)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}
	return nil
}

// ClearAccountOTP removes the stored code and resets the lockout counters
// after a successful login. Field-scoped for the same reason as SetAccountOTP.
func (s *DB) ClearAccountOTP(ctx context.Context, accountID int64) (err error) {
	ctx, span := s.startSpan(ctx, "ClearAccountOTP")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
UPDATE accounts
SET otp_hash = NULL, otp_expires_at = NULL, login_attempts = 0, lock_until = NULL, updated_at = now()
WHERE id = $1`, accountID)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}
	return nil
}

// RecordFailedAttempt bumps the attempt counter and applies the lock when the
// account reaches its attempt budget. The increment and the lock decision run
// in one statement so concurrent failures cannot skip the lock.
func (s *DB) RecordFailedAttempt(ctx context.Context, in entity.FailedAttempt) (err error) {
	ctx, span := s.startSpan(ctx, "RecordFailedAttempt")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
UPDATE accounts
SET login_attempts = login_attempts + 1,
    lock_until = CASE
        WHEN login_attempts + 1 >= $2 THEN now() + $3
        ELSE lock_until
    END,
    updated_at = now()
WHERE id = $1`, in.AccountID, in.MaxAttempts, in.LockDuration)
	return s.mapError(err)
}
