package inbound

import (
	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
)

// HTTPEndpoint exposes HTTP handlers for the OTP login workflow.
type HTTPEndpoint struct {
	uc uc
}

// RequestOTP generates and delivers a one-time password for an account.
func (h *HTTPEndpoint) RequestOTP(r *router.Request) (any, error) {
	var req RequestOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	_, err := h.uc.RequestOTP(r.Context(), usecase.RequestOTPInput{
		Collection: r.GetParam("collection"),
		Kind:       req.Type,
		Identifier: req.Value,
		RequestIP:  r.RemoteAddr,
	})
	if err != nil {
		return nil, err
	}

	return RequestOTPResponse{}, nil
}

// Login verifies a one-time password and starts a session.
func (h *HTTPEndpoint) Login(r *router.Request) (any, error) {
	var req LoginRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	collection := r.GetParam("collection")
	resp, err := h.uc.Login(r.Context(), usecase.LoginInput{
		Collection: collection,
		Kind:       req.Type,
		Identifier: req.Value,
		OTP:        req.OTP,
	})
	if err != nil {
		return nil, err
	}

	return newLoginResponse(collection, resp), nil
}

// Session returns the authenticated account behind the presented token.
func (h *HTTPEndpoint) Session(r *router.Request) (any, error) {
	resp, err := h.uc.Session(r.Context(), usecase.SessionInput{
		Collection: r.GetParam("collection"),
	})
	if err != nil {
		return nil, err
	}

	return SessionResponse{
		AccountID:  resp.AccountID,
		Email:      resp.Email,
		Collection: resp.Collection,
		Exp:        resp.ExpiresAt.Unix(),
	}, nil
}
