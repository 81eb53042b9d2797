// Package clock abstracts the current time behind a small interface so that
// expiry calculations can be driven by a fixed clock in tests.
package clock
