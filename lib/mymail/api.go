package mymail

import (
	"context"
)

type Mail struct {
	To      string
	Subject string
	Body    string
}

//go:generate mockgen -source=api.go -package mymail -destination mailer_mock.go Mailer
type Mailer interface {
	Send(c context.Context, mail Mail) error
}

// New sends through SendGrid when an api-key is configured, otherwise mails are only logged
func New(apiKey string, from string) Mailer {
	if apiKey == "" {
		return newLogMailer()
	}
	return newSendgridMailer(apiKey, from)
}
