package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
)

// CreateIssueLog appends an audit row for a generated code.
func (s *DB) CreateIssueLog(ctx context.Context, in entity.OTPIssueLog) (err error) {
	ctx, span := s.startSpan(ctx, "CreateIssueLog")
	defer func() { s.endSpan(span, err) }()

	requestIP := pgtype.Text{String: in.RequestIP, Valid: in.RequestIP != ""}

	_, err = s.conn.Exec(ctx, `
INSERT INTO otp_issue_log (id, collection, account_id, identifier_kind, otp_hash, expires_at, request_ip)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		in.ID, in.Collection, in.AccountID, int16(in.Kind), in.OTPHash, in.ExpiresAt, requestIP)
	return s.mapError(err)
}
