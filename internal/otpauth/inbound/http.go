package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

type uc interface {
	RequestOTP(ctx context.Context, in usecase.RequestOTPInput) (*usecase.RequestOTPOutput, error)
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	Session(ctx context.Context, in usecase.SessionInput) (*usecase.SessionOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/:collection/otp/request", end.RequestOTP)
	r.POST("/api/v1/:collection/otp/login", end.Login)
	r.GET("/api/v1/:collection/otp/session", end.Session) // need authenticated
}
