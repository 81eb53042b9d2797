package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/delivery/entity"
	"github.com/shandysiswandi/otpgate/internal/delivery/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

type fakeRepo struct {
	records []entity.DeliveryRecord
	err     error
}

func (f *fakeRepo) CreateDeliveryRecords(_ context.Context, records []entity.DeliveryRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, records...)
	return nil
}

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) Close() error { return nil }

type seqUID struct{ next int64 }

func (s *seqUID) Generate() int64 {
	s.next++
	return s.next
}

var testNow = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

func newUsecase(t *testing.T, repo *fakeRepo, mailer *fakeMailer, yaml string) *usecase.Usecase {
	t.Helper()

	val, err := validator.NewV10Validator(0)
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	if err != nil {
		t.Fatalf("failed to build config: %v", err)
	}

	return usecase.New(usecase.Dependency{
		RepoDB:     repo,
		Validator:  val,
		Config:     cfg,
		UID:        &seqUID{},
		Clock:      clock.NewStatic(testNow),
		Mailer:     mailer,
		Instrument: instrument.NewNoop(),
	})
}

func validInput() usecase.ConsumeOTPIssuedInput {
	return usecase.ConsumeOTPIssuedInput{
		IssueID:    7,
		Collection: "users",
		AccountID:  1,
		Email:      "john@example.com",
		Phone:      "+15550001111",
		Code:       "123456",
		ExpiresAt:  testNow.Add(5 * time.Minute),
		EmailSent:  true,
	}
}

const gatewayYAML = "modules:\n  delivery:\n    sms_gateway_suffix: \"@sms.example.net\"\n"

func TestConsumeOTPIssued(t *testing.T) {
	t.Run("RecordsEmailAndSMS", func(t *testing.T) {
		repo := &fakeRepo{}
		mailer := &fakeMailer{}
		uc := newUsecase(t, repo, mailer, gatewayYAML)

		if err := uc.ConsumeOTPIssued(context.Background(), validInput()); err != nil {
			t.Fatalf("ConsumeOTPIssued() error = %v", err)
		}

		if len(repo.records) != 2 {
			t.Fatalf("expected 2 delivery records, got %d", len(repo.records))
		}

		email, sms := repo.records[0], repo.records[1]
		if email.Channel != entity.DeliveryChannelEmail || email.Status != entity.DeliveryStatusSent {
			t.Fatalf("unexpected email record: %+v", email)
		}
		if sms.Channel != entity.DeliveryChannelSMS || sms.Status != entity.DeliveryStatusSent {
			t.Fatalf("unexpected sms record: %+v", sms)
		}
		if sms.Recipient != "15550001111@sms.example.net" {
			t.Fatalf("unexpected sms recipient: %q", sms.Recipient)
		}

		for _, r := range repo.records {
			if r.ID == 0 || r.IssueID != 7 || r.AccountID != 1 || !r.CreatedAt.Equal(testNow) {
				t.Fatalf("record not fully populated: %+v", r)
			}
		}

		if len(mailer.sent) != 1 || mailer.sent[0].To[0] != "15550001111@sms.example.net" {
			t.Fatalf("unexpected gateway mail: %+v", mailer.sent)
		}
	})

	t.Run("EmailSkippedWhenIssuerDidNotSend", func(t *testing.T) {
		repo := &fakeRepo{}
		uc := newUsecase(t, repo, &fakeMailer{}, gatewayYAML)

		in := validInput()
		in.EmailSent = false
		if err := uc.ConsumeOTPIssued(context.Background(), in); err != nil {
			t.Fatalf("ConsumeOTPIssued() error = %v", err)
		}

		if repo.records[0].Status != entity.DeliveryStatusSkipped {
			t.Fatalf("expected skipped email record, got %+v", repo.records[0])
		}
	})

	t.Run("GatewayFailureIsRecordedNotReturned", func(t *testing.T) {
		repo := &fakeRepo{}
		mailer := &fakeMailer{err: errors.New("gateway down")}
		uc := newUsecase(t, repo, mailer, gatewayYAML)

		if err := uc.ConsumeOTPIssued(context.Background(), validInput()); err != nil {
			t.Fatalf("ConsumeOTPIssued() error = %v", err)
		}

		sms := repo.records[1]
		if sms.Status != entity.DeliveryStatusFailed || sms.Detail != "gateway down" {
			t.Fatalf("unexpected sms record: %+v", sms)
		}
	})

	t.Run("NoGatewayConfiguredSkipsSMS", func(t *testing.T) {
		repo := &fakeRepo{}
		uc := newUsecase(t, repo, &fakeMailer{}, "")

		if err := uc.ConsumeOTPIssued(context.Background(), validInput()); err != nil {
			t.Fatalf("ConsumeOTPIssued() error = %v", err)
		}

		if len(repo.records) != 1 || repo.records[0].Channel != entity.DeliveryChannelEmail {
			t.Fatalf("expected only the email record, got %+v", repo.records)
		}
	})

	t.Run("ExpiredCodeIsDropped", func(t *testing.T) {
		repo := &fakeRepo{}
		uc := newUsecase(t, repo, &fakeMailer{}, gatewayYAML)

		in := validInput()
		in.ExpiresAt = testNow.Add(-time.Minute)
		if err := uc.ConsumeOTPIssued(context.Background(), in); err != nil {
			t.Fatalf("ConsumeOTPIssued() error = %v", err)
		}

		if len(repo.records) != 0 {
			t.Fatalf("expected no records for an expired code, got %+v", repo.records)
		}
	})

	t.Run("RepoFailurePropagates", func(t *testing.T) {
		repo := &fakeRepo{err: errors.New("db down")}
		uc := newUsecase(t, repo, &fakeMailer{}, gatewayYAML)

		if err := uc.ConsumeOTPIssued(context.Background(), validInput()); err == nil {
			t.Fatalf("expected error when persisting records fails")
		}
	})
}
