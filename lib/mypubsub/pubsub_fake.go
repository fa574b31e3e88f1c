package mypubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MarcGrol/manualcheckout/lib/myevents"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newFakePubSub
	}
}

// fakePubSub delivers messages in-process to push endpoints, mimicking a push-subscription
type fakePubSub struct {
	sync.Mutex
	subscriptions map[string][]string
	httpClient    *http.Client
	logger        mylog.Logger
}

func newFakePubSub(c context.Context) (PubSub, func(), error) {
	return &fakePubSub{
			subscriptions: map[string][]string{},
			httpClient:    &http.Client{Timeout: 10 * time.Second},
			logger:        mylog.New("pubsub"),
		}, func() {
		}, nil
}

func (ps *fakePubSub) Subscribe(c context.Context, topic string, urlToPostTo string) error {
	ps.Lock()
	defer ps.Unlock()

	ps.subscriptions[topic] = append(ps.subscriptions[topic], urlToPostTo)

	return nil
}

func (ps *fakePubSub) CreateTopic(c context.Context, topic string) error {
	return nil
}

func (ps *fakePubSub) Publish(c context.Context, topic string, data string) error {
	ps.Lock()
	urls := append([]string{}, ps.subscriptions[topic]...)
	ps.Unlock()

	for _, url := range urls {
		body, err := json.Marshal(myevents.PushRequest{
			Message: myevents.PushMessage{
				Data: []byte(data),
				ID:   uuid.NewString(),
			},
			Subscription: topic,
		})
		if err != nil {
			return fmt.Errorf("error marshalling push-request: %s", err)
		}

		// delivery is asynchronous like the real thing: never block the publishing transaction
		go ps.push(context.WithoutCancel(c), topic, url, body)
	}

	return nil
}

func (ps *fakePubSub) push(c context.Context, topic string, url string, body []byte) {
	req, err := http.NewRequestWithContext(c, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		ps.logger.Log(c, topic, mylog.SeverityError, "Error creating push-request to %s: %s", url, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := ps.httpClient.Do(req)
	if err != nil {
		ps.logger.Log(c, topic, mylog.SeverityError, "Error pushing to %s: %s", url, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		ps.logger.Log(c, topic, mylog.SeverityWarn, "Push to %s returned status %d", url, resp.StatusCode)
	}
}
