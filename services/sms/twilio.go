package smssvc

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/LAVINDI111/acnsms/core"
)

// twilioService sends SMS via the Twilio REST API, one call per message.
// When credentials are absent at startup the service stays disabled and every
// send fails fast without a network call.
type twilioService struct {
	client *twilio.RestClient
	from   string
	logger core.Logger
}

var _ core.SMSService = (*twilioService)(nil)

func NewTwilioService(conf *core.Config, logger core.Logger) *twilioService {
	svc := &twilioService{from: conf.SMS.TwilioPhoneNumber, logger: logger}
	if !conf.SMS.IsConfigured() {
		logger.Warn("Twilio credentials not found. SMS functionality disabled.")
		return svc
	}
	svc.client = twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: conf.SMS.TwilioAccountSID,
		Password: conf.SMS.TwilioAuthToken,
	})
	return svc
}

func (svc *twilioService) SendSMS(ctx context.Context, toPhone, body string) error {
	if svc.client == nil {
		return core.ErrSMSNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := new(openapi.CreateMessageParams)
	params.SetTo(toPhone)
	params.SetFrom(svc.from)
	params.SetBody(body)

	if _, err := svc.client.Api.CreateMessage(params); err != nil {
		svc.logger.Warn(fmt.Sprintf("sending SMS to %s: %v", toPhone, err))
		return err
	}
	return nil
}

func (svc *twilioService) SendBulkSMS(ctx context.Context, to []string, body string) core.BulkResult {
	var res core.BulkResult
	for _, phone := range to {
		res.Add(phone, svc.SendSMS(ctx, phone, body))
	}
	return res
}
