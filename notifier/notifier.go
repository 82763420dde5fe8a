package notifier

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/estateplan/apiv1/utils"
	"github.com/google/uuid"
	"gopkg.in/gomail.v2"
)

type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Result is what every send resolves to. Err is informational; callers treat
// delivery as best effort.
type Result struct {
	Success   bool
	MessageID string
	Err       error
}

// Notifier is fire-and-forget: Send always returns a Result and never lets a
// failure or panic escape past this boundary.
type Notifier interface {
	Send(ctx context.Context, msg Message) Result
}

// SMTPNotifier delivers mail through a plain SMTP relay.
type SMTPNotifier struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPNotifier() (*SMTPNotifier, error) {
	port, err := strconv.Atoi(os.Getenv(utils.SMTP_PORT))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", utils.SMTP_PORT, err)
	}
	return &SMTPNotifier{
		dialer: gomail.NewDialer(
			os.Getenv(utils.SMTP_HOST),
			port,
			os.Getenv(utils.SMTP_USERNAME),
			os.Getenv(utils.SMTP_PASSWORD),
		),
		from: os.Getenv(utils.SMTP_FROM),
	}, nil
}

func (n *SMTPNotifier) Send(ctx context.Context, msg Message) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: fmt.Errorf("notifier panic: %v", r)}
		}
	}()
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	if err := n.dialer.DialAndSend(m); err != nil {
		return Result{Err: err}
	}
	return Result{Success: true, MessageID: uuid.NewString()}
}
