package entity

import "time"

// DeliveryRecord is one attempt to hand a one-time password to an account
// over a channel, kept for support and abuse investigations.
type DeliveryRecord struct {
	ID         int64
	IssueID    int64
	Collection string
	AccountID  int64
	Channel    DeliveryChannel
	Recipient  string
	Status     DeliveryStatus
	Detail     string
	CreatedAt  time.Time
}
