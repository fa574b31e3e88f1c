package shopclient

import (
	"time"
)

type OrderItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type OrderRequest struct {
	CustomerName   string      `json:"customerName"`
	CustomerPhone  string      `json:"customerPhone"`
	CustomerEmail  string      `json:"customerEmail,omitempty"`
	Notes          string      `json:"notes,omitempty"`
	PaymentMethod  string      `json:"paymentMethod"`
	Items          []OrderItem `json:"items"`
	IdempotencyKey string      `json:"idempotencyKey"`
}

type Account struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     string `json:"role"`
}

// OrderCreated carries a generated password only for the call that created the account
type OrderCreated struct {
	ID                string   `json:"id"`
	Status            string   `json:"status"`
	Account           *Account `json:"account,omitempty"`
	GeneratedPassword string   `json:"generatedPassword,omitempty"`
}

type Order struct {
	ID            string      `json:"id"`
	Status        string      `json:"status"`
	PaymentMethod string      `json:"paymentMethod"`
	Total         int64       `json:"total"`
	CreatedAt     time.Time   `json:"createdAt"`
	Items         []OrderItem `json:"items"`
}

type PaymentDetails struct {
	Title        string `json:"title"`
	Value        string `json:"value"`
	Instructions string `json:"instructions,omitempty"`
}

type Receipt struct {
	Filename string
	Data     []byte
}

type confirmationResponse struct {
	ID string `json:"id"`
}
