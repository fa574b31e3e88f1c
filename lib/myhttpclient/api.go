package myhttpclient

import (
	"context"
)

type HTTPSender interface {
	Send(c context.Context, method string, url string, contentType string, body []byte) (int, []byte, error)
}

func New(name string) HTTPSender {
	return newBreakingHTTPClient(name, timeout)
}
