// Package contracttests keeps an in-memory shop that behaves like the real backend,
// and the contract both must satisfy.
package contracttests

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
	"github.com/MarcGrol/manualcheckout/lib/myuuid"
	"github.com/MarcGrol/manualcheckout/shopper/shopclient"
)

const (
	maxReceiptSize = 5 << 20
	maxItemPrice   = 1_000_000_000_00
)

// ShopAPI is what the shopper needs from the backend
type ShopAPI interface {
	CreateOrder(c context.Context, req shopclient.OrderRequest) (shopclient.OrderCreated, error)
	GetOrder(c context.Context, orderID string) (shopclient.Order, error)
	SubmitConfirmation(c context.Context, transactionID string, message string, receipt shopclient.Receipt) (string, error)
}

type FakeShop struct {
	sync.Mutex
	uuider   myuuid.UUIDer
	nower    mytime.Nower
	Store    *mystore.InMemoryStore[shopclient.Order]
	accounts map[string]bool
}

func NewFakeShop() *FakeShop {
	store, _, _ := mystore.NewInMemoryStore[shopclient.Order](context.Background())
	return &FakeShop{
		uuider:   myuuid.RealUUIDer{},
		nower:    mytime.RealNower{},
		Store:    store,
		accounts: map[string]bool{},
	}
}

func (s *FakeShop) CreateOrder(c context.Context, req shopclient.OrderRequest) (shopclient.OrderCreated, error) {
	s.Lock()
	defer s.Unlock()

	if strings.TrimSpace(req.CustomerName) == "" {
		return shopclient.OrderCreated{}, &shopclient.ValidationError{Field: "customerName", Message: "missing"}
	}
	if len(req.Items) == 0 {
		return shopclient.OrderCreated{}, &shopclient.ValidationError{Field: "items", Message: "missing"}
	}
	for i, item := range req.Items {
		if item.Price < 0 || item.Price > maxItemPrice {
			return shopclient.OrderCreated{}, &shopclient.ValidationError{Field: fmt.Sprintf("items[%d].price", i), Message: "out of range"}
		}
	}
	if req.IdempotencyKey == "" {
		return shopclient.OrderCreated{}, &shopclient.ValidationError{Field: "idempotencyKey", Message: "missing"}
	}

	orderID := myuuid.FromKey(req.IdempotencyKey)
	existing, found, err := s.Store.Get(c, orderID)
	if err != nil {
		return shopclient.OrderCreated{}, err
	}
	if found {
		return shopclient.OrderCreated{ID: existing.ID, Status: existing.Status}, nil
	}

	total := int64(0)
	for _, item := range req.Items {
		total += item.Price * int64(item.Quantity)
	}
	order := shopclient.Order{
		ID:            orderID,
		Status:        "pending",
		PaymentMethod: req.PaymentMethod,
		Total:         total,
		CreatedAt:     s.nower.Now(),
		Items:         req.Items,
	}
	err = s.Store.Put(c, order.ID, order)
	if err != nil {
		return shopclient.OrderCreated{}, err
	}

	created := shopclient.OrderCreated{ID: order.ID, Status: order.Status}
	if req.CustomerEmail != "" && !s.accounts[req.CustomerEmail] {
		s.accounts[req.CustomerEmail] = true
		created.Account = &shopclient.Account{ID: s.uuider.Create(), Email: req.CustomerEmail, Role: "customer"}
		created.GeneratedPassword = s.uuider.Create()
	}
	return created, nil
}

func (s *FakeShop) GetOrder(c context.Context, orderID string) (shopclient.Order, error) {
	order, found, err := s.Store.Get(c, orderID)
	if err != nil {
		return shopclient.Order{}, err
	}
	if !found {
		return shopclient.Order{}, &shopclient.NotFoundError{Message: fmt.Sprintf("transaction %s not found", orderID)}
	}
	return order, nil
}

func (s *FakeShop) SubmitConfirmation(c context.Context, transactionID string, message string, receipt shopclient.Receipt) (string, error) {
	if transactionID == "" {
		return "", &shopclient.ValidationError{Field: "transactionId", Message: "missing"}
	}
	if strings.TrimSpace(message) == "" {
		return "", &shopclient.ValidationError{Field: "message", Message: "missing"}
	}
	if len(receipt.Data) > maxReceiptSize {
		return "", &shopclient.PayloadTooLargeError{Message: "receipt too large"}
	}

	order, err := s.GetOrder(c, transactionID)
	if err != nil {
		return "", err
	}
	if order.Status == "completed" || order.Status == "cancelled" {
		return "", &shopclient.ConflictError{Message: fmt.Sprintf("transaction %s is %s", transactionID, order.Status)}
	}
	return s.uuider.Create(), nil
}

// SetStatus plays the back office
func (s *FakeShop) SetStatus(c context.Context, orderID string, status string) error {
	order, err := s.GetOrder(c, orderID)
	if err != nil {
		return err
	}
	order.Status = status
	return s.Store.Put(c, orderID, order)
}
