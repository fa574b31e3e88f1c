package myqueue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeQueueDispatchesTask(t *testing.T) {
	called := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		called <- r.URL.Path
	}))
	defer server.Close()

	q := newFakeQueueFor(server.URL, time.Millisecond)

	err := q.Enqueue(context.TODO(), Task{UID: "abc", WebhookURLPath: "/pubsub/transaction/abc"})
	assert.NoError(t, err)

	select {
	case path := <-called:
		assert.Equal(t, "/pubsub/transaction/abc", path)
	case <-time.After(5 * time.Second):
		t.Fatal("task not dispatched")
	}

	attempt, max := q.IsLastAttempt(context.TODO(), "abc")
	assert.Equal(t, attempt, max)
}
