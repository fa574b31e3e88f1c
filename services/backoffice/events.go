package backoffice

import (
	"context"
	"fmt"

	"github.com/MarcGrol/manualcheckout/lib/myhttp"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/mymail"
	"github.com/MarcGrol/manualcheckout/services/orders/ordersevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.subscriber.CreateTopic(c, ordersevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", ordersevents.TopicName, err)
	}

	err = s.subscriber.Subscribe(c, ordersevents.TopicName, myhttp.GuessHostnameWithScheme()+"/api/backoffice/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", ordersevents.TopicName, err)
	}

	return nil
}

func (s *service) OnTransactionCreated(c context.Context, topic string, event ordersevents.TransactionCreated) error {
	return s.alert(c, event.TransactionUID,
		fmt.Sprintf("New order %s", event.TransactionUID),
		fmt.Sprintf("Customer: %s (%s) %s\nPayment method: %s\nItems: %d\nTotal: %d\n\nWaiting for payment.\n",
			event.CustomerName, event.CustomerPhone, event.CustomerEmail, event.PaymentMethod, event.ItemCount, event.TotalAmount))
}

func (s *service) OnTransactionStatusChanged(c context.Context, topic string, event ordersevents.TransactionStatusChanged) error {
	s.logger.Log(c, event.TransactionUID, mylog.SeverityInfo, "Transaction %s went from %s to %s", event.TransactionUID, event.OldStatus, event.NewStatus)
	return nil
}

func (s *service) OnConfirmationSubmitted(c context.Context, topic string, event ordersevents.ConfirmationSubmitted) error {
	return s.alert(c, event.TransactionUID,
		fmt.Sprintf("Payment confirmation for order %s", event.TransactionUID),
		fmt.Sprintf("Tracking code: %s\nMessage: %s\nReceipt: %s\n\nPlease verify the payment and update the order status.\n",
			event.ConfirmationUID, event.Message, event.ReceiptURL))
}

func (s *service) alert(c context.Context, transactionUID string, subject string, body string) error {
	if s.config.AlertAddress == "" {
		s.logger.Log(c, transactionUID, mylog.SeverityWarn, "No back-office address configured, dropping alert %q", subject)
		return nil
	}

	err := s.mailer.Send(c, mymail.Mail{
		To:      s.config.AlertAddress,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return fmt.Errorf("error sending back-office alert: %w", err)
	}
	return nil
}
