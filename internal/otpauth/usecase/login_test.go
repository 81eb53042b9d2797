package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/otpauth/entity"
	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
)

func loginInput(code string) usecase.LoginInput {
	return usecase.LoginInput{
		Collection: "users",
		Identifier: "john@example.com",
		OTP:        code,
	}
}

func TestLogin(t *testing.T) {
	collections := usecase.Collections{"users": {}}

	t.Run("SucceedsOnceThenReplayFails", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))
		code := f.requestCode(t, "users", "john@example.com")

		out, err := f.uc.Login(context.Background(), loginInput(code))
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if out.Token != "signed-token" {
			t.Fatalf("expected signed token, got %q", out.Token)
		}
		if out.Account == nil || out.Account.ID != 1 {
			t.Fatalf("unexpected account in output: %+v", out.Account)
		}

		acct := f.db.account(1)
		if acct.OTPHash != "" || acct.OTPExpiresAt != nil {
			t.Fatalf("expected stored code to be cleared, got %+v", acct)
		}

		_, err = f.uc.Login(context.Background(), loginInput(code))
		assertLoginFailure(t, err)
	})

	t.Run("WrongCodeFailsUniformly", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))
		code := f.requestCode(t, "users", "john@example.com")

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		_, err := f.uc.Login(context.Background(), loginInput(wrong))
		assertLoginFailure(t, err)
	})

	t.Run("ExpiredCodeFailsUniformly", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))
		code := f.requestCode(t, "users", "john@example.com")

		past := testNow.Add(-time.Second)
		f.db.accounts[0].OTPExpiresAt = &past

		_, err := f.uc.Login(context.Background(), loginInput(code))
		assertLoginFailure(t, err)
	})

	t.Run("NoPendingCodeFailsUniformly", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))

		_, err := f.uc.Login(context.Background(), loginInput("123456"))
		assertLoginFailure(t, err)
	})

	t.Run("UnknownAccountFailsUniformly", func(t *testing.T) {
		f := newFixture(t, collections)

		_, err := f.uc.Login(context.Background(), loginInput("123456"))
		assertLoginFailure(t, err)

		if len(f.db.attempts) != 0 {
			t.Fatalf("expected no recorded attempts without a candidate, got %d", len(f.db.attempts))
		}
	})

	t.Run("ReissueInvalidatesPriorCode", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))
		first := f.requestCode(t, "users", "john@example.com")
		second := f.requestCode(t, "users", "john@example.com")

		if first != second {
			_, err := f.uc.Login(context.Background(), loginInput(first))
			assertLoginFailure(t, err)
		}

		if _, err := f.uc.Login(context.Background(), loginInput(second)); err != nil {
			t.Fatalf("Login() with fresh code error = %v", err)
		}
	})

	t.Run("MalformedCodeIsRejectedByValidation", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))

		for _, bad := range []string{"12345", "1234567", "12345a", ""} {
			_, err := f.uc.Login(context.Background(), loginInput(bad))
			assertCode(t, err, goerror.CodeInvalidInput)
		}

		if len(f.db.attempts) != 0 {
			t.Fatalf("expected no recorded attempts for malformed codes, got %d", len(f.db.attempts))
		}
	})

	t.Run("FailuresRecordAttemptsAndLock", func(t *testing.T) {
		locking := usecase.Collections{"users": {MaxLoginAttempts: 2, LockDuration: time.Hour}}
		f := newFixture(t, locking, activeAccount(1, "users", "john@example.com"))
		code := f.requestCode(t, "users", "john@example.com")

		wrong := "000000"
		if wrong == code {
			wrong = "000001"
		}

		for range 2 {
			_, err := f.uc.Login(context.Background(), loginInput(wrong))
			assertLoginFailure(t, err)
		}

		if len(f.db.attempts) != 2 {
			t.Fatalf("expected 2 recorded attempts, got %d", len(f.db.attempts))
		}
		acct := f.db.account(1)
		if acct.LockUntil == nil || !acct.LockUntil.Equal(testNow.Add(time.Hour)) {
			t.Fatalf("expected account locked for an hour, got %+v", acct.LockUntil)
		}

		// Even the right code is refused while the lock holds, with the
		// same message as any other failure.
		_, err := f.uc.Login(context.Background(), loginInput(code))
		assertLoginFailure(t, err)
	})

	t.Run("LockoutDisabledRecordsNothing", func(t *testing.T) {
		f := newFixture(t, collections, activeAccount(1, "users", "john@example.com"))
		f.requestCode(t, "users", "john@example.com")

		_, err := f.uc.Login(context.Background(), loginInput("999999"))
		assertLoginFailure(t, err)

		if len(f.db.attempts) != 0 {
			t.Fatalf("expected no recorded attempts, got %d", len(f.db.attempts))
		}
	})

	t.Run("AmbiguousIdentifierIsServerFault", func(t *testing.T) {
		a := activeAccount(1, "users", "john@example.com")
		b := activeAccount(2, "users", "john@example.com")
		f := newFixture(t, collections, a, b)

		_, err := f.uc.Login(context.Background(), loginInput("123456"))
		assertCode(t, err, goerror.CodeInternal)
	})

	t.Run("HideTokenFlagPropagates", func(t *testing.T) {
		hidden := usecase.Collections{"users": {HideToken: true}}
		f := newFixture(t, hidden, activeAccount(1, "users", "john@example.com"))
		code := f.requestCode(t, "users", "john@example.com")

		out, err := f.uc.Login(context.Background(), loginInput(code))
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if !out.HideToken {
			t.Fatalf("expected HideToken to be set")
		}
		if out.Token == "" {
			t.Fatalf("token must still be issued for the cookie")
		}
	})

	t.Run("BeforeLoginVeto", func(t *testing.T) {
		vetoed := usecase.Collections{"users": {
			BeforeLogin: []usecase.LoginHook{
				func(context.Context, *entity.Account) (*entity.Account, error) {
					return nil, errors.New("not allowed")
				},
			},
		}}
		f := newFixture(t, vetoed, activeAccount(1, "users", "john@example.com"))
		code := f.requestCode(t, "users", "john@example.com")

		_, err := f.uc.Login(context.Background(), loginInput(code))
		assertCode(t, err, goerror.CodeUnauthorized)

		if f.jwt.calls != 0 {
			t.Fatalf("expected no token issued after veto")
		}
		if f.db.account(1).OTPHash == "" {
			t.Fatalf("expected stored code to survive a vetoed login")
		}
	})

	t.Run("BeforeLoginReplacement", func(t *testing.T) {
		replaced := usecase.Collections{"users": {
			BeforeLogin: []usecase.LoginHook{
				func(_ context.Context, acct *entity.Account) (*entity.Account, error) {
					cp := *acct
					cp.Email = "rewritten@example.com"
					return &cp, nil
				},
			},
		}}
		f := newFixture(t, replaced, activeAccount(1, "users", "john@example.com"))
		code := f.requestCode(t, "users", "john@example.com")

		out, err := f.uc.Login(context.Background(), loginInput(code))
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if out.Account.Email != "rewritten@example.com" {
			t.Fatalf("expected replacement account in output, got %q", out.Account.Email)
		}
	})

	t.Run("AfterLoginErrorIsNotFatal", func(t *testing.T) {
		noisy := usecase.Collections{"users": {
			AfterLogin: []usecase.LoginHook{
				func(context.Context, *entity.Account) (*entity.Account, error) {
					return nil, errors.New("webhook down")
				},
			},
		}}
		f := newFixture(t, noisy, activeAccount(1, "users", "john@example.com"))
		code := f.requestCode(t, "users", "john@example.com")

		if _, err := f.uc.Login(context.Background(), loginInput(code)); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
	})
}
