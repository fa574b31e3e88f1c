package myqueue

import (
	"context"
)

type Task struct {
	UID            string
	WebhookURLPath string
	Payload        []byte
}

var New func(c context.Context) (TaskQueuer, func(), error)

//go:generate mockgen -source=api.go -package myqueue -destination queuer_mock.go TaskQueuer
type TaskQueuer interface {
	Enqueue(c context.Context, task Task) error
	// IsLastAttempt returns the number of dispatches so far and the maximum (-1 when unlimited or unknown)
	IsLastAttempt(c context.Context, taskUID string) (int32, int32)
}
