package confirmation

import (
	"time"
)

const (
	maxReceiptSize = 5 << 20
	// room for the other form fields and the multipart framing
	maxRequestSize = maxReceiptSize + 64<<10
)

// Confirmation is the buyer's proof of payment for a transaction; it is never changed after creation
type Confirmation struct {
	UID                string
	TransactionUID     string
	Message            string `datastore:",noindex"`
	ReceiptURL         string `datastore:",noindex"`
	ReceiptContentType string
	CreatedAt          time.Time
}

type confirmRequest struct {
	TransactionID string `form:"transactionId"`
	Message       string `form:"message"`
}

type receipt struct {
	filename    string
	contentType string
	data        []byte
}

type confirmResponse struct {
	ID string `json:"id"`
}
