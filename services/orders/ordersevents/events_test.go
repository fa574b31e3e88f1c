package ordersevents

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/mypublisher"
)

type recordingService struct {
	created       []TransactionCreated
	statusChanged []TransactionStatusChanged
	confirmations []ConfirmationSubmitted
}

func (s *recordingService) Subscribe(c context.Context) error {
	return nil
}

func (s *recordingService) OnTransactionCreated(c context.Context, topic string, event TransactionCreated) error {
	s.created = append(s.created, event)
	return nil
}

func (s *recordingService) OnTransactionStatusChanged(c context.Context, topic string, event TransactionStatusChanged) error {
	s.statusChanged = append(s.statusChanged, event)
	return nil
}

func (s *recordingService) OnConfirmationSubmitted(c context.Context, topic string, event ConfirmationSubmitted) error {
	s.confirmations = append(s.confirmations, event)
	return nil
}

func TestDispatchEvent(t *testing.T) {
	t.Run("transaction created", func(t *testing.T) {
		service := &recordingService{}
		msg := mypublisher.CreatePubsubMessage(TopicName, TransactionCreated{TransactionUID: "tx-1", TotalAmount: 250})

		err := DispatchEvent(context.TODO(), strings.NewReader(msg), service)

		assert.NoError(t, err)
		assert.Equal(t, []TransactionCreated{{TransactionUID: "tx-1", TotalAmount: 250}}, service.created)
	})

	t.Run("status changed", func(t *testing.T) {
		service := &recordingService{}
		msg := mypublisher.CreatePubsubMessage(TopicName, TransactionStatusChanged{TransactionUID: "tx-1", OldStatus: "pending", NewStatus: "completed"})

		err := DispatchEvent(context.TODO(), strings.NewReader(msg), service)

		assert.NoError(t, err)
		assert.Len(t, service.statusChanged, 1)
		assert.Equal(t, "completed", service.statusChanged[0].NewStatus)
	})

	t.Run("confirmation submitted", func(t *testing.T) {
		service := &recordingService{}
		msg := mypublisher.CreatePubsubMessage(TopicName, ConfirmationSubmitted{TransactionUID: "tx-1", ConfirmationUID: "c-1"})

		err := DispatchEvent(context.TODO(), strings.NewReader(msg), service)

		assert.NoError(t, err)
		assert.Len(t, service.confirmations, 1)
	})

	t.Run("garbage", func(t *testing.T) {
		err := DispatchEvent(context.TODO(), strings.NewReader("{"), &recordingService{})

		assert.Error(t, err)
		assert.Equal(t, 400, myerrors.GetHTTPStatus(err))
	})
}
