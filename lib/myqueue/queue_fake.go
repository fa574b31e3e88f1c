package myqueue

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"time"

	"github.com/MarcGrol/manualcheckout/lib/myhttp"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
)

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") == "" {
		New = newFakeQueue
	}
}

// fakeTaskQueue dispatches each task once, in-process, against the local server
type fakeTaskQueue struct {
	baseURL    string
	delay      time.Duration
	httpClient *http.Client
	logger     mylog.Logger
}

func newFakeQueue(c context.Context) (TaskQueuer, func(), error) {
	return newFakeQueueFor(myhttp.GuessHostnameWithScheme(), 200*time.Millisecond), func() {}, nil
}

func newFakeQueueFor(baseURL string, delay time.Duration) *fakeTaskQueue {
	return &fakeTaskQueue{
		baseURL:    baseURL,
		delay:      delay,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     mylog.New("taskqueue"),
	}
}

func (q *fakeTaskQueue) Enqueue(c context.Context, task Task) error {
	go q.dispatch(context.WithoutCancel(c), task)
	return nil
}

func (q *fakeTaskQueue) dispatch(c context.Context, task Task) {
	// give the enqueueing transaction time to commit
	time.Sleep(q.delay)

	req, err := http.NewRequestWithContext(c, http.MethodPut, q.baseURL+task.WebhookURLPath, bytes.NewReader(task.Payload))
	if err != nil {
		q.logger.Log(c, task.UID, mylog.SeverityError, "Error creating task-request: %s", err)
		return
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		q.logger.Log(c, task.UID, mylog.SeverityError, "Error dispatching task %s: %s", task.WebhookURLPath, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		q.logger.Log(c, task.UID, mylog.SeverityWarn, "Task %s returned status %d", task.WebhookURLPath, resp.StatusCode)
	}
}

func (q *fakeTaskQueue) IsLastAttempt(c context.Context, taskUID string) (int32, int32) {
	return 1, 1
}
