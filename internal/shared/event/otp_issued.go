package event

const OTPIssuedDestination string = "otp_issued"
const OTPIssuedConsumerDelivery string = "otp_issued_delivery"

// OTPIssuedMessage is published after a one-time password has been stored for
// an account. Consumers deliver the code over channels the issuing service
// does not handle itself (SMS, push).
type OTPIssuedMessage struct {
	IssueID    int64  `json:"issue_id,string"`
	Collection string `json:"collection"`
	AccountID  int64  `json:"account_id,string"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Code       string `json:"code"`
	ExpiresAt  int64  `json:"expires_at"`
	EmailSent  bool   `json:"email_sent"`
}
