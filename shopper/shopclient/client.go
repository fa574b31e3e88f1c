// Package shopclient talks to the shop backend on behalf of the shopper.
package shopclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/MarcGrol/manualcheckout/lib/myhttpclient"
)

type Client struct {
	baseURL string
	sender  myhttpclient.HTTPSender
}

func New(baseURL string, sender myhttpclient.HTTPSender) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		sender:  sender,
	}
}

// CreateOrder is safe to retry with the same idempotency key
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (OrderCreated, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return OrderCreated{}, fmt.Errorf("error marshalling order: %s", err)
	}

	resp := OrderCreated{}
	err = c.do(ctx, http.MethodPost, "/orders", "application/json", body, &resp)
	if err != nil {
		return OrderCreated{}, err
	}
	return resp, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, error) {
	resp := Order{}
	err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), "", nil, &resp)
	if err != nil {
		return Order{}, err
	}
	return resp, nil
}

// SubmitConfirmation uploads the proof of payment and returns the tracking code
func (c *Client) SubmitConfirmation(ctx context.Context, transactionID string, message string, receipt Receipt) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	err := writer.WriteField("transactionId", transactionID)
	if err != nil {
		return "", err
	}
	err = writer.WriteField("message", message)
	if err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("receipt", receipt.Filename)
	if err != nil {
		return "", err
	}
	_, err = part.Write(receipt.Data)
	if err != nil {
		return "", err
	}
	err = writer.Close()
	if err != nil {
		return "", err
	}

	resp := confirmationResponse{}
	err = c.do(ctx, http.MethodPost, "/transactions/confirm", writer.FormDataContentType(), body.Bytes(), &resp)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// PaymentDetails returns nil for a method that needs no instructions
func (c *Client) PaymentDetails(ctx context.Context, method string) (*PaymentDetails, error) {
	var resp *PaymentDetails
	err := c.do(ctx, http.MethodGet, "/payment-details?method="+url.QueryEscape(method), "", nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method string, path string, contentType string, body []byte, resp any) error {
	status, respBody, err := c.sender.Send(ctx, method, c.baseURL+path, contentType, body)
	if err != nil {
		return &TransientError{Err: err}
	}
	if status < 200 || status >= 300 {
		return decodeError(status, respBody)
	}

	err = json.Unmarshal(respBody, resp)
	if err != nil {
		return fmt.Errorf("error parsing response of %s %s: %s", method, path, err)
	}
	return nil
}
