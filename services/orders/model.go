package orders

import (
	"time"

	"github.com/MarcGrol/manualcheckout/services/accounts"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusCancelled},
}

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return Status(s), true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further status change is expected
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Item struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// Transaction is immutable once created, except for Status
type Transaction struct {
	UID            string
	IdempotencyKey string
	UserUID        string
	TotalAmount    int64
	Status         Status
	Items          []Item `datastore:",noindex"`
	PaymentMethod  string
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  string
	Notes          string `datastore:",noindex"`
	CreatedAt      time.Time
	LastModified   *time.Time
}

func (t Transaction) summary() accounts.OrderSummary {
	return accounts.OrderSummary{
		ID:            t.UID,
		Status:        string(t.Status),
		PaymentMethod: t.PaymentMethod,
		Total:         t.TotalAmount,
		CreatedAt:     t.CreatedAt,
	}
}

// CreateOrderRequest is the checkout payload; a client-supplied total is ignored
type CreateOrderRequest struct {
	CustomerName   string `json:"customerName"`
	CustomerPhone  string `json:"customerPhone"`
	CustomerEmail  string `json:"customerEmail,omitempty"`
	Notes          string `json:"notes,omitempty"`
	PaymentMethod  string `json:"paymentMethod"`
	Items          []Item `json:"items"`
	IdempotencyKey string `json:"idempotencyKey"`
	Total          *int64 `json:"total,omitempty"`
}

type CreateOrderResponse struct {
	ID                string                `json:"id"`
	Status            Status                `json:"status"`
	Account           *accounts.AccountView `json:"account,omitempty"`
	GeneratedPassword string                `json:"generatedPassword,omitempty"`
}

type OrderResponse struct {
	ID            string    `json:"id"`
	Status        Status    `json:"status"`
	PaymentMethod string    `json:"paymentMethod"`
	Total         int64     `json:"total"`
	CreatedAt     time.Time `json:"createdAt"`
	Items         []Item    `json:"items"`
}

func (t Transaction) response() OrderResponse {
	items := t.Items
	if items == nil {
		items = []Item{}
	}
	return OrderResponse{
		ID:            t.UID,
		Status:        t.Status,
		PaymentMethod: t.PaymentMethod,
		Total:         t.TotalAmount,
		CreatedAt:     t.CreatedAt,
		Items:         items,
	}
}
