package myhttpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/MarcGrol/manualcheckout/lib/mylog"
)

const (
	timeout             = 15 * time.Second
	consecutiveFailures = 5
	openStateDuration   = 30 * time.Second
)

var errServerFailure = errors.New("server failure")

type response struct {
	status int
	body   []byte
}

// breakingHTTPClient stops calling a failing server for a while once it keeps failing
type breakingHTTPClient struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[response]
	logger     mylog.Logger
}

func newBreakingHTTPClient(name string, timeout time.Duration) *breakingHTTPClient {
	logger := mylog.New("httpclient")
	return &breakingHTTPClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
			Name:    name,
			Timeout: openStateDuration,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= consecutiveFailures
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				logger.Log(context.Background(), name, mylog.SeverityWarn, "Circuit breaker %s: %s -> %s", name, from, to)
			},
		}),
		logger: logger,
	}
}

func (c *breakingHTTPClient) Send(ctx context.Context, method string, url string, contentType string, body []byte) (int, []byte, error) {
	resp, err := c.breaker.Execute(func() (response, error) {
		return c.send(ctx, method, url, contentType, body)
	})
	if err != nil {
		if errors.Is(err, errServerFailure) {
			// the server answered: report the answer, the breaker already counted the failure
			return resp.status, resp.body, nil
		}
		return 0, []byte{}, err
	}

	return resp.status, resp.body, nil
}

func (c *breakingHTTPClient) send(ctx context.Context, method string, url string, contentType string, body []byte) (response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return response{}, fmt.Errorf("error creating http request for %s %s: %w", method, url, err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.Log(ctx, "", mylog.SeverityDebug, "HTTP request: %s %s", method, url)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return response{}, fmt.Errorf("error sending %s %s: %w", method, url, err)
	}
	defer httpResp.Body.Close()

	respPayload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return response{}, fmt.Errorf("error reading response %s %s: %w", method, url, err)
	}

	c.logger.Log(ctx, "", mylog.SeverityDebug, "HTTP response: %s %s -> %d", method, url, httpResp.StatusCode)

	resp := response{status: httpResp.StatusCode, body: respPayload}
	if httpResp.StatusCode >= http.StatusInternalServerError {
		return resp, errServerFailure
	}

	return resp, nil
}
