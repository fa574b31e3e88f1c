package mypublisher

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/MarcGrol/manualcheckout/lib/myevents"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
)

type enveloper struct {
	nower mytime.Nower
}

func newEnveloper(nower mytime.Nower) enveloper {
	return enveloper{
		nower: nower,
	}
}

func (e enveloper) do(topic string, event myevents.Event) (myevents.EventEnvelope, error) {
	jsonPayload, err := json.Marshal(event)
	if err != nil {
		return myevents.EventEnvelope{}, fmt.Errorf("error marshalling event-payload: %s", err)
	}
	envelope := myevents.EventEnvelope{
		Topic:         topic,
		AggregateUID:  event.GetAggregateName(),
		EventTypeName: event.GetEventTypeName(),
		EventPayload:  string(jsonPayload),
	}

	// uid is a checksum of the content: publishing the same event twice yields the same envelope
	envelope.UID = checksum(envelope)
	envelope.CreatedAt = e.nower.Now()

	return envelope, nil
}

func checksum(envlp myevents.EventEnvelope) string {
	sum := sha256.Sum256([]byte(envlp.Topic + "|" + envlp.EventTypeName + "|" + envlp.AggregateUID + "|" + envlp.EventPayload))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
