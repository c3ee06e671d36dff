package notification

import (
	"log"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Channel senders are external collaborators (SMTP relay, SMS gateway, push
// service). The engine talks to them through these interfaces; the defaults
// just log, which is also what test runs use.

type EmailSender interface {
	SendEmail(to, subject, body string) error
}

type SMSSender interface {
	SendSMS(phone, body string) error
}

type PushSender interface {
	SendPush(token, title, body string) error
}

type Senders struct {
	Email EmailSender
	SMS   SMSSender
	Push  PushSender
}

type logEmailSender struct{}

func (logEmailSender) SendEmail(to, subject, body string) error {
	log.Printf("INFO: [Email] to=%s subject=%q", to, subject)
	return nil
}

type logSMSSender struct{}

func (logSMSSender) SendSMS(phone, body string) error {
	log.Printf("INFO: [SMS] to=%s body=%q", phone, body)
	return nil
}

type logPushSender struct{}

func (logPushSender) SendPush(token, title, body string) error {
	log.Printf("INFO: [Push] title=%q", title)
	return nil
}

func DefaultSenders() Senders {
	return Senders{Email: logEmailSender{}, SMS: logSMSSender{}, Push: logPushSender{}}
}

var amountPrinter = message.NewPrinter(language.English)

// formatAmount renders a money amount with grouping separators for message
// bodies, e.g. 52000 -> "52,000".
func formatAmount(amount int64) string {
	return amountPrinter.Sprintf("%d", amount)
}
