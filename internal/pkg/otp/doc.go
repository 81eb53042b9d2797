// Package otp generates short-lived numeric one-time passwords.
//
// Codes are sequences of independently uniform random decimal digits drawn
// from a cryptographically secure source; left zero padding is preserved, so
// "004821" is a valid six-digit code.
package otp
