package core

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
)

// ErrSMSNotConfigured is returned by every SMS send when Twilio credentials
// were absent at startup. No network call is attempted in that case.
var ErrSMSNotConfigured = errors.New("SMS service not configured")

type (
	// EmailService sends a fully-formed plain-text email to a single recipient.
	// Each send is independent; implementations do not retry.
	EmailService interface {
		SendEmail(ctx context.Context, to mail.Address, subject, body string) error
		// SendBulkEmail loops SendEmail; one failure does not stop the batch.
		SendBulkEmail(ctx context.Context, to []mail.Address, subject, body string) BulkResult
	}

	// SMSService sends a fully-formed SMS to a single phone number.
	SMSService interface {
		SendSMS(ctx context.Context, toPhone, body string) error
		// SendBulkSMS loops SendSMS; one failure does not stop the batch.
		SendBulkSMS(ctx context.Context, to []string, body string) BulkResult
	}

	// BulkResult aggregates the outcome of a non-atomic bulk send.
	BulkResult struct {
		Sent   int      `json:"sent"`
		Failed int      `json:"failed"`
		Errors []string `json:"errors,omitempty"`
	}
)

func (res *BulkResult) Add(recipient string, err error) {
	if err != nil {
		res.Failed++
		res.Errors = append(res.Errors, fmt.Sprintf("failed to send to %s: %v", recipient, err))
		return
	}
	res.Sent++
}
