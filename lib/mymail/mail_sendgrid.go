package mymail

import (
	"context"
	"fmt"
	"html"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/MarcGrol/manualcheckout/lib/mylog"
)

const senderName = "Shop"

type sendgridMailer struct {
	client *sendgrid.Client
	from   string
	logger mylog.Logger
}

func newSendgridMailer(apiKey string, from string) *sendgridMailer {
	return &sendgridMailer{
		client: sendgrid.NewSendClient(apiKey),
		from:   from,
		logger: mylog.New("mail"),
	}
}

func (m *sendgridMailer) Send(c context.Context, mail Mail) error {
	if m.from == "" {
		return fmt.Errorf("from address is empty")
	}
	if mail.To == "" {
		return fmt.Errorf("to address is empty")
	}

	message := sgmail.NewSingleEmail(
		sgmail.NewEmail(senderName, m.from),
		mail.Subject,
		sgmail.NewEmail("", mail.To),
		mail.Body,
		fmt.Sprintf("<pre>%s</pre>", html.EscapeString(mail.Body)),
	)

	response, err := m.client.SendWithContext(c, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d, body=%s", response.StatusCode, response.Body)
	}

	m.logger.Log(c, mail.To, mylog.SeverityInfo, "Mail sent: status=%d subject=%s", response.StatusCode, mail.Subject)

	return nil
}
