package smssvc

import (
	"context"
	"log"
	"sync"

	"github.com/LAVINDI111/acnsms/core"
)

// SentMessage records one SMS handed to the console service; tests inspect it.
type SentMessage struct {
	To   string
	Body string
}

var (
	SentMessages = make([]SentMessage, 0)
	mu           sync.Mutex
)

// consoleService writes SMS to the log instead of sending them. DEV default.
type consoleService struct {
	disableOutput bool
}

var _ core.SMSService = (*consoleService)(nil)

func NewConsoleService() core.SMSService {
	return &consoleService{}
}

func (svc *consoleService) SendSMS(_ context.Context, toPhone, body string) error {
	if !svc.disableOutput {
		log.Printf("SMS to %s: %s", toPhone, body)
	}
	mu.Lock()
	SentMessages = append(SentMessages, SentMessage{To: toPhone, Body: body})
	mu.Unlock()
	return nil
}

func (svc *consoleService) SendBulkSMS(ctx context.Context, to []string, body string) core.BulkResult {
	var res core.BulkResult
	for _, phone := range to {
		res.Add(phone, svc.SendSMS(ctx, phone, body))
	}
	return res
}

// NewConsoleServiceMock is the test variant: no output, sends recorded only.
func NewConsoleServiceMock() core.SMSService {
	return &consoleService{disableOutput: true}
}

// ClearSentMessages resets the recorded sends between tests.
func ClearSentMessages() {
	mu.Lock()
	SentMessages = SentMessages[:0]
	mu.Unlock()
}
