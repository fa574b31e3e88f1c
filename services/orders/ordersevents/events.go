package ordersevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/myevents"
)

const (
	TopicName                 = "transaction"
	transactionCreatedName    = TopicName + ".created"
	statusChangedName         = TopicName + ".status.changed"
	confirmationSubmittedName = TopicName + ".confirmation.submitted"
)

type TransactionEventService interface {
	Subscribe(c context.Context) error
	OnTransactionCreated(c context.Context, topic string, event TransactionCreated) error
	OnTransactionStatusChanged(c context.Context, topic string, event TransactionStatusChanged) error
	OnConfirmationSubmitted(c context.Context, topic string, event ConfirmationSubmitted) error
}

func DispatchEvent(c context.Context, reader io.Reader, service TransactionEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case transactionCreatedName:
		{
			event := TransactionCreated{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnTransactionCreated(c, envelope.Topic, event)
		}
	case statusChangedName:
		{
			event := TransactionStatusChanged{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnTransactionStatusChanged(c, envelope.Topic, event)
		}
	case confirmationSubmittedName:
		{
			event := ConfirmationSubmitted{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnConfirmationSubmitted(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("unsupported event type %s", envelope.EventTypeName))
	}
}

// TransactionCreated is the back-office alert for a new order
type TransactionCreated struct {
	TransactionUID string
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  string
	PaymentMethod  string
	TotalAmount    int64
	ItemCount      int
}

func (e TransactionCreated) GetEventTypeName() string {
	return transactionCreatedName
}

func (e TransactionCreated) GetAggregateName() string {
	return e.TransactionUID
}

type TransactionStatusChanged struct {
	TransactionUID string
	OldStatus      string
	NewStatus      string
}

func (e TransactionStatusChanged) GetEventTypeName() string {
	return statusChangedName
}

func (e TransactionStatusChanged) GetAggregateName() string {
	return e.TransactionUID
}

// ConfirmationSubmitted tells the back office that proof of payment is waiting for review
type ConfirmationSubmitted struct {
	TransactionUID  string
	ConfirmationUID string
	Message         string
	ReceiptURL      string
}

func (e ConfirmationSubmitted) GetEventTypeName() string {
	return confirmationSubmittedName
}

func (e ConfirmationSubmitted) GetAggregateName() string {
	return e.TransactionUID
}
