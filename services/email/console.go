package emailsvc

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/LAVINDI111/acnsms/core"
)

// SentMessage records one email handed to the console service; tests inspect it.
type SentMessage struct {
	To      mail.Address
	Subject string
	Body    string
}

var (
	SentMessages = make([]SentMessage, 0)
	mu           sync.Mutex
)

// consoleService writes mail to the log instead of sending it. DEV default.
type consoleService struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	disableOutput    bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
	}
}

func (svc *consoleService) SendEmail(_ context.Context, to mail.Address, subject, body string) error {
	if !svc.disableOutput {
		out := new(strings.Builder)
		_, _ = fmt.Fprintf(out, "From: %s\r\n", svc.defaultFromEmail.String())
		_, _ = fmt.Fprintf(out, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
		_, _ = fmt.Fprintf(out, "Subject: %s\r\n", svc.subjPrefix+subject)
		_, _ = fmt.Fprintf(out, "To: %s\r\n", to.String())
		_, _ = fmt.Fprintf(out, "\r\n%s\r\n", body)
		log.Println(out.String())
	}

	mu.Lock()
	SentMessages = append(SentMessages, SentMessage{To: to, Subject: subject, Body: body})
	mu.Unlock()
	return nil
}

func (svc *consoleService) SendBulkEmail(ctx context.Context, to []mail.Address, subject, body string) core.BulkResult {
	var res core.BulkResult
	for _, addr := range to {
		res.Add(addr.Address, svc.SendEmail(ctx, addr, subject, body))
	}
	return res
}

// NewConsoleServiceMock is the test variant: no output, sends recorded only.
func NewConsoleServiceMock() core.EmailService {
	return &consoleService{disableOutput: true}
}

// ClearSentMessages resets the recorded sends between tests.
func ClearSentMessages() {
	mu.Lock()
	SentMessages = SentMessages[:0]
	mu.Unlock()
}
