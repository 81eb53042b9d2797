package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shandysiswandi/otpgate/internal/delivery/entity"
)

const createDeliveryRecordQuery = `
	INSERT INTO otp_delivery_log (id, issue_id, collection, account_id, channel, recipient, status, detail, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

// CreateDeliveryRecords writes one row per delivery attempt in a single batch.
func (s *DB) CreateDeliveryRecords(ctx context.Context, records []entity.DeliveryRecord) (err error) {
	ctx, span := s.startSpan(ctx, "CreateDeliveryRecords")
	defer func() { s.endSpan(span, err) }()

	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(createDeliveryRecordQuery,
			r.ID, r.IssueID, r.Collection, r.AccountID,
			string(r.Channel), r.Recipient, string(r.Status), r.Detail, r.CreatedAt,
		)
	}

	results := s.conn.SendBatch(ctx, batch)
	defer func() {
		if cErr := results.Close(); cErr != nil && err == nil {
			err = s.mapError(cErr)
		}
	}()

	for range records {
		if _, eErr := results.Exec(); eErr != nil {
			return s.mapError(eErr)
		}
	}

	return nil
}
