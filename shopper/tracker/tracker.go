// Package tracker polls the status of a placed order until it reaches a final state.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/shopper/shopclient"
)

const (
	DefaultInterval    = 10 * time.Second
	DefaultMaxFailures = 3

	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

//go:generate mockgen -source=tracker.go -package tracker -destination tracker_mock.go StatusFetcher
type StatusFetcher interface {
	GetOrder(c context.Context, orderID string) (shopclient.Order, error)
}

// Update is reported after every fetch
type Update struct {
	OrderID  string
	Order    *shopclient.Order
	Terminal bool
	NotFound bool
	Message  string
	Err      error
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

type Tracker struct {
	fetcher     StatusFetcher
	interval    time.Duration
	maxFailures int
	logger      mylog.Logger
}

type Option func(t *Tracker)

func WithInterval(interval time.Duration) Option {
	return func(t *Tracker) {
		t.interval = interval
	}
}

// WithMaxFailures stops tracking after n consecutive failed fetches; 0 means never
func WithMaxFailures(n int) Option {
	return func(t *Tracker) {
		t.maxFailures = n
	}
}

func New(fetcher StatusFetcher, opts ...Option) *Tracker {
	t := &Tracker{
		fetcher:     fetcher,
		interval:    DefaultInterval,
		maxFailures: DefaultMaxFailures,
		logger:      mylog.New("tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track fetches immediately and then once per interval while the order is not final.
// It returns the last update; the error is only set when tracking was given up.
func (t *Tracker) Track(c context.Context, orderID string, onUpdate func(Update)) (Update, error) {
	failures := 0
	for {
		update := t.fetch(c, orderID)
		if onUpdate != nil {
			onUpdate(update)
		}

		switch {
		case update.Terminal, update.NotFound:
			return update, nil
		case update.Err != nil:
			failures++
			if t.maxFailures > 0 && failures >= t.maxFailures {
				return update, fmt.Errorf("gave up tracking order %s after %d failures: %w", orderID, failures, update.Err)
			}
		default:
			failures = 0
		}

		select {
		case <-c.Done():
			return update, c.Err()
		case <-time.After(t.interval):
		}
	}
}

func (t *Tracker) fetch(c context.Context, orderID string) Update {
	order, err := t.fetcher.GetOrder(c, orderID)
	if err != nil {
		if shopclient.IsNotFound(err) {
			return Update{
				OrderID:  orderID,
				NotFound: true,
				Message:  fmt.Sprintf("order %s not found", orderID),
				Err:      err,
			}
		}
		t.logger.Log(c, orderID, mylog.SeverityWarn, "Error fetching order status: %s", err)
		return Update{
			OrderID: orderID,
			Message: "could not fetch the order status, try again",
			Err:     err,
		}
	}

	return Update{
		OrderID:  orderID,
		Order:    &order,
		Terminal: IsTerminal(order.Status),
		Message:  fmt.Sprintf("order %s is %s", orderID, order.Status),
	}
}
