package myevents

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEventEnvelope(t *testing.T) {
	t.Run("valid push request", func(t *testing.T) {
		envelopeBytes, _ := json.Marshal(EventEnvelope{
			UID:           "abc",
			Topic:         "transaction",
			AggregateUID:  "tx-1",
			EventTypeName: "transaction.created",
			EventPayload:  `{"transactionId":"tx-1"}`,
		})
		reqBytes, _ := json.Marshal(PushRequest{
			Message:      PushMessage{Data: envelopeBytes, ID: "m1"},
			Subscription: "backoffice",
		})

		envelope, err := ParseEventEnvelope(strings.NewReader(string(reqBytes)))
		assert.NoError(t, err)
		assert.Equal(t, "transaction.transaction.created.tx-1", envelope.String())
		assert.Equal(t, `{"transactionId":"tx-1"}`, envelope.EventPayload)
	})

	t.Run("invalid request", func(t *testing.T) {
		_, err := ParseEventEnvelope(strings.NewReader("not json"))
		assert.Error(t, err)
	})

	t.Run("invalid envelope", func(t *testing.T) {
		_, err := ParseEventEnvelope(strings.NewReader(`{"Message":{"Data":"bm90IGpzb24="}}`))
		assert.Error(t, err)
	})
}
