// Package queue carries one-time codes to the SMS collaborator over
// RabbitMQ: a publisher used by the password reset flow and a reconnecting
// consumer that hands each message to a Deliverer.
package queue

// DefaultSMSQueue is the durable queue used when SMS_QUEUE is unset.
const DefaultSMSQueue = "sms.outbound"

// SMSRequested asks the SMS collaborator to deliver a one-time code. The
// payload is self-contained so the consumer never reads the database.
type SMSRequested struct {
	Phone       string `json:"phone"`
	Code        string `json:"code"`
	Purpose     string `json:"purpose"`
	RequestedAt string `json:"requested_at"`
}

// PurposePasswordReset tags codes issued by the password reset flow.
const PurposePasswordReset = "password_reset"
