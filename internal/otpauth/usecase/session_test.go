package usecase_test

import (
	"context"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
)

func TestSession(t *testing.T) {
	collections := usecase.Collections{"users": {}}
	exp := testNow.Add(time.Hour)

	authedCtx := func(collection string) context.Context {
		return jwt.SetAuth(context.Background(), jwt.Claims{
			RegisteredClaims: jwtlib.RegisteredClaims{
				ExpiresAt: jwtlib.NewNumericDate(exp),
			},
			AccountID:  42,
			Email:      "john@example.com",
			Collection: collection,
		})
	}

	t.Run("ReturnsClaims", func(t *testing.T) {
		f := newFixture(t, collections)

		out, err := f.uc.Session(authedCtx("users"), usecase.SessionInput{Collection: "users"})
		if err != nil {
			t.Fatalf("Session() error = %v", err)
		}

		if out.AccountID != 42 || out.Email != "john@example.com" || out.Collection != "users" {
			t.Fatalf("unexpected session output: %+v", out)
		}
		if !out.ExpiresAt.Equal(exp) {
			t.Fatalf("expected expiry %v, got %v", exp, out.ExpiresAt)
		}
	})

	t.Run("MissingClaims", func(t *testing.T) {
		f := newFixture(t, collections)

		_, err := f.uc.Session(context.Background(), usecase.SessionInput{Collection: "users"})
		assertCode(t, err, goerror.CodeUnauthorized)
	})

	t.Run("WrongCollection", func(t *testing.T) {
		f := newFixture(t, collections)

		_, err := f.uc.Session(authedCtx("admins"), usecase.SessionInput{Collection: "users"})
		assertCode(t, err, goerror.CodeForbidden)
	})
}
