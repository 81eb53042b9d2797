package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/otpgate/internal/delivery/entity"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
)

type ConsumeOTPIssuedInput struct {
	IssueID    int64
	Collection string `validate:"required"`
	AccountID  int64  `validate:"required"`
	Email      string
	Phone      string
	Code       string `validate:"required"`
	ExpiresAt  time.Time
	EmailSent  bool
}

// ConsumeOTPIssued fans a stored one-time password out to the channels the
// issuing service does not send itself and records every attempt, including
// the issuer's own email send, in the delivery log.
func (s *Usecase) ConsumeOTPIssued(ctx context.Context, in ConsumeOTPIssuedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeOTPIssued")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if !in.ExpiresAt.IsZero() && s.clock.Now().After(in.ExpiresAt) {
		slog.WarnContext(ctx, "skipping delivery of an already expired code",
			"collection", in.Collection, "account_id", in.AccountID, "issue_id", in.IssueID)
		return nil
	}

	var records []entity.DeliveryRecord

	if in.Email != "" {
		records = append(records, entity.DeliveryRecord{
			Channel:   entity.DeliveryChannelEmail,
			Recipient: in.Email,
			Status:    lo.Ternary(in.EmailSent, entity.DeliveryStatusSent, entity.DeliveryStatusSkipped),
			Detail:    lo.Ternary(in.EmailSent, "sent by issuer", "email delivery disabled for collection"),
		})
	}

	if sms := s.sendSMS(ctx, in); sms != nil {
		records = append(records, *sms)
	}

	if len(records) == 0 {
		slog.WarnContext(ctx, "account has no reachable delivery channel",
			"collection", in.Collection, "account_id", in.AccountID, "issue_id", in.IssueID)
		return nil
	}

	now := s.clock.Now()
	records = lo.Map(records, func(r entity.DeliveryRecord, _ int) entity.DeliveryRecord {
		r.ID = s.uid.Generate()
		r.IssueID = in.IssueID
		r.Collection = in.Collection
		r.AccountID = in.AccountID
		r.CreatedAt = now
		return r
	})

	if err := s.repoDB.CreateDeliveryRecords(ctx, records); err != nil {
		slog.ErrorContext(ctx, "failed to repo create delivery records",
			"collection", in.Collection, "account_id", in.AccountID, "error", err)
		return goerror.NewServer(err)
	}

	return nil
}

// sendSMS pushes the code through an email-to-SMS gateway when one is
// configured and the account has a phone number. A failed send is recorded,
// not retried; the code expires on its own either way.
func (s *Usecase) sendSMS(ctx context.Context, in ConsumeOTPIssuedInput) *entity.DeliveryRecord {
	suffix := strings.TrimSpace(s.cfg.GetString("modules.delivery.sms_gateway_suffix"))
	if in.Phone == "" || suffix == "" {
		return nil
	}

	addr := strings.TrimPrefix(in.Phone, "+") + suffix
	record := &entity.DeliveryRecord{
		Channel:   entity.DeliveryChannelSMS,
		Recipient: addr,
		Status:    entity.DeliveryStatusSent,
		Detail:    "email-to-sms gateway",
	}

	err := s.mailer.Send(ctx, mail.Message{
		To:       []string{addr},
		Subject:  "One-time password",
		TextBody: "Your one-time password is " + in.Code,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to send otp over sms gateway",
			"collection", in.Collection, "account_id", in.AccountID, "error", err)
		record.Status = entity.DeliveryStatusFailed
		record.Detail = err.Error()
	}

	return record
}
