package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

type accountRow struct {
	ID            int64
	Collection    string
	Email         pgtype.Text
	Username      pgtype.Text
	Phone         pgtype.Text
	Status        int16
	OTPHash       pgtype.Text
	OTPExpiresAt  pgtype.Timestamptz
	LoginAttempts int32
	LockUntil     pgtype.Timestamptz
}

func (r accountRow) toEntity() *entity.Account {
	acct := &entity.Account{
		ID:            r.ID,
		Collection:    r.Collection,
		Email:         r.Email.String,
		Username:      r.Username.String,
		Phone:         r.Phone.String,
		Status:        entity.AccountStatus(r.Status),
		OTPHash:       r.OTPHash.String,
		LoginAttempts: r.LoginAttempts,
	}
	if r.OTPExpiresAt.Valid {
		t := r.OTPExpiresAt.Time
		acct.OTPExpiresAt = &t
	}
	if r.LockUntil.Valid {
		t := r.LockUntil.Time
		acct.LockUntil = &t
	}
	return acct
}

const accountColumns = `id, collection, email, username, phone, status,
otp_hash, otp_expires_at, login_attempts, lock_until`

// scanSingleAccount reads up to two rows and enforces that the predicate
// matched exactly one account. Two matches is goerror.ErrAmbiguous, zero is
// goerror.ErrNotFound.
func scanSingleAccount(rows pgx.Rows) (*entity.Account, error) {
	defer rows.Close()

	var found *accountRow
	for rows.Next() {
		var r accountRow
		if err := rows.Scan(
			&r.ID, &r.Collection, &r.Email, &r.Username, &r.Phone, &r.Status,
			&r.OTPHash, &r.OTPExpiresAt, &r.LoginAttempts, &r.LockUntil,
		); err != nil {
			return nil, err
		}

		if found != nil {
			return nil, goerror.ErrAmbiguous
		}
		found = &r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if found == nil {
		return nil, goerror.ErrNotFound
	}

	return found.toEntity(), nil
}

// GetAccountByIdentifier resolves an account by a single identifier field
// within a collection.
func (s *DB) GetAccountByIdentifier(ctx context.Context, collection string, kind entity.IdentifierKind, identifier string) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountByIdentifier")
	defer func() { s.endSpan(span, err) }()

	column, err := identifierColumn(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + `
FROM accounts
WHERE collection = $1 AND ` + column + ` = $2
LIMIT 2`

	rows, err := s.conn.Query(ctx, query, collection, identifier)
	if err != nil {
		return nil, s.mapError(err)
	}

	acct, err := scanSingleAccount(rows)
	if err != nil {
		return nil, s.mapError(err)
	}
	return acct, nil
}

// GetAccountWithValidOTP resolves an account by identifier plus a matching,
// unexpired one-time password hash. Matching happens entirely inside the
// predicate so a wrong code and a missing account are indistinguishable to
// the caller.
func (s *DB) GetAccountWithValidOTP(ctx context.Context, collection string, kind entity.IdentifierKind, identifier, otpHash string, now time.Time) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccountWithValidOTP")
	defer func() { s.endSpan(span, err) }()

	column, err := identifierColumn(kind)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + `
FROM accounts
WHERE collection = $1 AND ` + column + ` = $2
  AND otp_hash = $3
  AND otp_expires_at > $4
LIMIT 2`

	rows, err := s.conn.Query(ctx, query, collection, identifier, otpHash, now)
	if err != nil {
		return nil, s.mapError(err)
	}

	acct, err := scanSingleAccount(rows)
	if err != nil {
		return nil, s.mapError(err)
	}
	return acct, nil
}
