package emailsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/LAVINDI111/acnsms/core"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// sendgridService sends one HTTP request per email; no connection reuse, no retry.
type sendgridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	logger     core.Logger
}

var _ core.EmailService = (*sendgridService)(nil)

func NewSendgridService(conf *core.Config, logger core.Logger) *sendgridService {
	return &sendgridService{
		key:        conf.SendgridAPIKey,
		from:       sgmail.NewEmail(conf.DefaultFromEmail.Name, conf.DefaultFromEmail.Address),
		subjPrefix: "[" + conf.AppName + "] ",
		logger:     logger,
	}
}

func (svc *sendgridService) SendEmail(ctx context.Context, to mail.Address, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	req := sendgrid.GetRequest(svc.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(svc.prepare(to, subject, body))

	res, err := sendgrid.API(req)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("sending email to %s: %v", to.Address, err))
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		err = fmt.Errorf("sending email - status: %d - body: %s", res.StatusCode, res.Body)
		svc.logger.Warn(err.Error())
		return err
	}
	return nil
}

func (svc *sendgridService) SendBulkEmail(ctx context.Context, to []mail.Address, subject, body string) core.BulkResult {
	var res core.BulkResult
	for _, addr := range to {
		res.Add(addr.Address, svc.SendEmail(ctx, addr, subject, body))
	}
	return res
}

func (svc *sendgridService) prepare(to mail.Address, subject, body string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = svc.subjPrefix + subject
	p.AddTos(sgmail.NewEmail(to.Name, to.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(svc.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", body))
	return m
}
