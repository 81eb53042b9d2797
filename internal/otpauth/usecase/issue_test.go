package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/ratelimit"
)

func assertCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()

	var gerr *goerror.Error
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *goerror.Error, got %T: %v", err, err)
	}
	if gerr.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, gerr.Code(), err)
	}
}

func TestRequestOTP(t *testing.T) {
	collections := usecase.Collections{"users": {}}

	t.Run("Success", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))

		out, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "john@example.com",
			RequestIP:  "203.0.113.7",
		})
		if err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}

		if len(out.OTP) != 6 {
			t.Fatalf("expected a 6 digit code, got %q", out.OTP)
		}
		if want := testNow.Add(300 * time.Second); !out.ExpiresAt.Equal(want) {
			t.Fatalf("expected expiry %v, got %v", want, out.ExpiresAt)
		}

		acct := f.db.account(1)
		if acct.OTPHash == "" || acct.OTPHash == out.OTP {
			t.Fatalf("expected a stored hash distinct from the plaintext, got %q", acct.OTPHash)
		}

		if len(f.mailer.sent) != 1 {
			t.Fatalf("expected one email, got %d", len(f.mailer.sent))
		}
		if f.mailer.sent[0].To[0] != "john@example.com" {
			t.Fatalf("email sent to %q", f.mailer.sent[0].To[0])
		}

		if len(f.mq.events) != 1 {
			t.Fatalf("expected one published event, got %d", len(f.mq.events))
		}
		ev := f.mq.events[0]
		if ev.IssueID != 9001 || ev.AccountID != 1 || ev.Code != out.OTP || !ev.EmailSent {
			t.Fatalf("unexpected event payload: %+v", ev)
		}

		if len(f.limiter.keys) != 1 || f.limiter.keys[0] != "users:john@example.com" {
			t.Fatalf("unexpected rate limit keys: %v", f.limiter.keys)
		}

		if err := f.gm.Wait(); err != nil {
			t.Fatalf("background tasks failed: %v", err)
		}
		if len(f.db.issueLogs) != 1 {
			t.Fatalf("expected one audit row, got %d", len(f.db.issueLogs))
		}
		log := f.db.issueLogs[0]
		if log.ID != 9001 || log.AccountID != 1 || log.RequestIP != "203.0.113.7" || log.Kind != entity.IdentifierKindEmail {
			t.Fatalf("unexpected audit row: %+v", log)
		}
	})

	t.Run("NormalizesEmailIdentifier", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))

		if _, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "  John@Example.COM ",
		}); err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}
	})

	t.Run("ExplicitUsernameKind", func(t *testing.T) {
		acct := activeAccount(1, "users", "john@example.com")
		acct.Username = "john"
		f := newFixture(t, collections, acct)

		if _, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Kind:       "username",
			Identifier: "john",
		}); err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}
	})

	t.Run("ExplicitIDKind", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(42, "users", "john@example.com"))

		out, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Kind:       "id",
			Identifier: "42",
		})
		if err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}
		if out.Account.ID != 42 {
			t.Fatalf("expected account 42, got %d", out.Account.ID)
		}
	})

	t.Run("DefaultEmailBodyStatesExpiryWindow", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))

		out, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "john@example.com",
		})
		if err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}

		want := "Your one-time password is " + out.OTP + ". It expires in 5 minutes."
		if got := f.mailer.sent[0].TextBody; got != want {
			t.Fatalf("unexpected default email body: %q", got)
		}
	})

	t.Run("UnknownCollection", func(t *testing.T) {
		f := newFixture(t, collections)

		_, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "ghosts",
			Identifier: "john@example.com",
		})
		assertCode(t, err, goerror.CodeNotFound)
	})

	t.Run("UnknownAccount", func(t *testing.T) {
		f := newFixture(t, collections)

		_, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "nobody@example.com",
		})
		assertCode(t, err, goerror.CodeNotFound)
	})

	t.Run("AmbiguousIdentifierIsServerFault", func(t *testing.T) {
		a := activeAccount(1, "users", "dup@example.com")
		b := activeAccount(2, "users", "dup@example.com")
		f := newFixture(t, collections, a, b)

		_, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "dup@example.com",
		})
		assertCode(t, err, goerror.CodeInternal)
	})

	t.Run("RateLimited", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))
		f.limiter.err = ratelimit.ErrLimitExceeded

		_, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "john@example.com",
		})
		assertCode(t, err, goerror.CodeTooManyRequest)
	})

	t.Run("BannedAccount", func(t *testing.T) {
		acct := activeAccount(1, "users", "john@example.com")
		acct.Status = entity.AccountStatusBanned
		f := newFixture(t, collections, acct)

		_, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "john@example.com",
		})
		assertCode(t, err, goerror.CodeForbidden)
	})

	t.Run("CollectionExpiryOverride", func(t *testing.T) {
		short := usecase.Collections{"users": {Expiry: 90 * time.Second}}
		f := newFixture(t, short, activeAccount(1, "users", "john@example.com"))

		out, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "john@example.com",
		})
		if err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}
		if want := testNow.Add(90 * time.Second); !out.ExpiresAt.Equal(want) {
			t.Fatalf("expected expiry %v, got %v", want, out.ExpiresAt)
		}
	})

	t.Run("DisableEmailSkipsDelivery", func(t *testing.T) {
		quiet := usecase.Collections{"users": {DisableEmail: true}}
		f := newFixture(t, quiet, activeAccount(1, "users", "john@example.com"))

		if _, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "john@example.com",
		}); err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}

		if len(f.mailer.sent) != 0 {
			t.Fatalf("expected no email, got %d", len(f.mailer.sent))
		}
		if len(f.mq.events) != 1 || f.mq.events[0].EmailSent {
			t.Fatalf("expected published event without email_sent, got %+v", f.mq.events)
		}
	})

	t.Run("MailFailureFailsRequest", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))
		f.mailer.err = errors.New("smtp down")

		_, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "john@example.com",
		})
		assertCode(t, err, goerror.CodeInternal)
	})

	t.Run("PublishFailureIsNotFatal", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))
		f.mq.err = errors.New("broker down")

		if _, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "john@example.com",
		}); err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}
	})

	t.Run("AfterIssueHooksRunInOrder", func(t *testing.T) {
		var order []string
		hooked := usecase.Collections{"users": {
			AfterIssue: []usecase.AfterIssueHook{
				func(_ context.Context, ev usecase.HookEvent) error {
					order = append(order, "first:"+ev.OTP)
					return errors.New("first hook failed")
				},
				func(_ context.Context, ev usecase.HookEvent) error {
					order = append(order, "second:"+ev.OTP)
					return nil
				},
			},
		}}
		f := newFixture(t, hooked, activeAccount(1, "users", "john@example.com"))

		out, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "john@example.com",
		})
		if err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}

		if len(order) != 2 || order[0] != "first:"+out.OTP || order[1] != "second:"+out.OTP {
			t.Fatalf("unexpected hook order: %v", order)
		}
	})

	t.Run("EmailTemplateOverrides", func(t *testing.T) {
		custom := usecase.Collections{"users": {
			EmailSubject: func(usecase.HookEvent) string { return "Sign-in code" },
			EmailBody:    func(ev usecase.HookEvent) string { return "code=" + ev.OTP },
		}}
		f := newFixture(t, custom, activeAccount(1, "users", "john@example.com"))

		out, err := f.uc.RequestOTP(context.Background(), usecase.RequestOTPInput{
			Collection: "users",
			Identifier: "john@example.com",
		})
		if err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}

		msg := f.mailer.sent[0]
		if msg.Subject != "Sign-in code" || msg.TextBody != "code="+out.OTP {
			t.Fatalf("unexpected email content: subject=%q body=%q", msg.Subject, msg.TextBody)
		}
	})
}
