package inbound

import (
	"net/http"

	"github.com/shandysiswandi/otpgate/internal/otpauth/usecase"
)

type RequestOTPRequest struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
}

type RequestOTPResponse struct{}

func (RequestOTPResponse) Message() string {
	return "If an account with that identifier exists, we have sent a one-time password."
}

type LoginRequest struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value"`
	OTP   string `json:"otp"`
}

type LoginUser struct {
	ID         int64  `json:"id,string"`
	Email      string `json:"email,omitempty"`
	Username   string `json:"username,omitempty"`
	Collection string `json:"collection"`
}

type LoginResponse struct {
	Token string    `json:"token,omitempty"`
	Exp   int64     `json:"exp"`
	User  LoginUser `json:"user"`

	cookie *http.Cookie
}

func newLoginResponse(collection string, out *usecase.LoginOutput) LoginResponse {
	resp := LoginResponse{
		Exp: out.ExpiresAt.Unix(),
		User: LoginUser{
			ID:         out.Account.ID,
			Email:      out.Account.Email,
			Username:   out.Account.Username,
			Collection: out.Account.Collection,
		},
		cookie: &http.Cookie{
			Name:     collection + "-token",
			Value:    out.Token,
			Path:     "/",
			Expires:  out.ExpiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
	if !out.HideToken {
		resp.Token = out.Token
	}
	return resp
}

func (LoginResponse) Message() string {
	return "Login successful."
}

func (l LoginResponse) Cookies() []*http.Cookie {
	return []*http.Cookie{l.cookie}
}

type SessionResponse struct {
	AccountID  int64  `json:"account_id,string"`
	Email      string `json:"email,omitempty"`
	Collection string `json:"collection"`
	Exp        int64  `json:"exp"`
}
