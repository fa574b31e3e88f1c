package orders

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/myuuid"
	"github.com/MarcGrol/manualcheckout/services/accounts"
	"github.com/MarcGrol/manualcheckout/services/orders/ordersevents"
)

const (
	maxIdempotencyKeyLength = 128
	maxItemPrice            = 1_000_000_000_00
	maxItemQuantity         = 10_000
)

// validate reports the first offending field
func (s *service) validate(req CreateOrderRequest) error {
	if strings.TrimSpace(req.CustomerName) == "" {
		return myerrors.NewFieldErrorf("customerName", "missing customer name")
	}
	if strings.TrimSpace(req.CustomerPhone) == "" {
		return myerrors.NewFieldErrorf("customerPhone", "missing customer phone")
	}
	if req.PaymentMethod == "" {
		return myerrors.NewFieldErrorf("paymentMethod", "missing payment method")
	}
	if !s.paymentMethods.Exists(req.PaymentMethod) {
		return myerrors.NewFieldErrorf("paymentMethod", "unsupported payment method %q", req.PaymentMethod)
	}
	if len(req.Items) == 0 {
		return myerrors.NewFieldErrorf("items", "order has no items")
	}
	total := int64(0)
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return myerrors.NewFieldErrorf(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive, got %d", item.Quantity)
		}
		if item.Quantity > maxItemQuantity {
			return myerrors.NewFieldErrorf(fmt.Sprintf("items[%d].quantity", i), "quantity exceeds %d, got %d", maxItemQuantity, item.Quantity)
		}
		if item.Price < 0 {
			return myerrors.NewFieldErrorf(fmt.Sprintf("items[%d].price", i), "price must not be negative, got %d", item.Price)
		}
		if item.Price > maxItemPrice {
			return myerrors.NewFieldErrorf(fmt.Sprintf("items[%d].price", i), "price exceeds %d, got %d", maxItemPrice, item.Price)
		}
		line := item.Price * int64(item.Quantity)
		if total > math.MaxInt64-line {
			return myerrors.NewFieldErrorf(fmt.Sprintf("items[%d].quantity", i), "order total exceeds %d", int64(math.MaxInt64))
		}
		total += line
	}
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return myerrors.NewFieldErrorf("idempotencyKey", "missing idempotency key")
	}
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		return myerrors.NewFieldErrorf("idempotencyKey", "idempotency key exceeds %d characters", maxIdempotencyKeyLength)
	}
	if req.CustomerEmail != "" {
		if _, err := accounts.NormalizeEmail(req.CustomerEmail); err != nil {
			return myerrors.NewFieldError("customerEmail", err)
		}
	}
	return nil
}

// totalAmount assumes items passed validate, which keeps the sum within int64
func totalAmount(items []Item) int64 {
	total := int64(0)
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

type createResult struct {
	transaction Transaction
	created     bool
	provisioned *accounts.Provisioned
}

func (s *service) createOrder(c context.Context, w http.ResponseWriter, r *http.Request, req CreateOrderRequest) (createResult, error) {
	err := s.validate(req)
	if err != nil {
		return createResult{}, err
	}

	// the key determines the id: a replay maps onto the same row
	transactionUID := myuuid.FromKey(req.IdempotencyKey)

	// a replay answers with the original and never provisions or signs in again
	existing, exists, err := s.transactionStore.Get(c, transactionUID)
	if err != nil {
		return createResult{}, myerrors.NewInternalError(err)
	}
	if exists {
		s.logger.Log(c, transactionUID, mylog.SeverityInfo, "Replay of idempotency key for transaction %s", transactionUID)
		return createResult{transaction: existing}, nil
	}

	result := createResult{}

	userUID := ""
	caller, found, err := s.provisioner.CurrentAccount(c, r)
	if err != nil {
		return createResult{}, err
	}
	if found {
		userUID = caller.UID
	} else if req.CustomerEmail != "" {
		provisioned, err := s.provisioner.Provision(c, accounts.ProvisionRequest{
			Email: req.CustomerEmail,
			Name:  req.CustomerName,
			Phone: req.CustomerPhone,
		})
		if err != nil {
			// the order goes through unlinked; submitting a payment confirmation provisions again
			s.logger.Log(c, transactionUID, mylog.SeverityError, "Error provisioning account for %s: %s", req.CustomerEmail, err)
		} else {
			userUID = provisioned.Account.UID
			result.provisioned = &provisioned
		}
	}

	if req.Total != nil && *req.Total != totalAmount(req.Items) {
		s.logger.Log(c, transactionUID, mylog.SeverityWarn, "Ignoring client total %d", *req.Total)
	}

	now := s.nower.Now()
	err = s.transactionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		existing, exists, err := s.transactionStore.Get(c, transactionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if exists {
			result.transaction = existing
			result.created = false
			return nil
		}

		transaction := Transaction{
			UID:            transactionUID,
			IdempotencyKey: req.IdempotencyKey,
			UserUID:        userUID,
			TotalAmount:    totalAmount(req.Items),
			Status:         StatusPending,
			Items:          req.Items,
			PaymentMethod:  req.PaymentMethod,
			CustomerName:   strings.TrimSpace(req.CustomerName),
			CustomerPhone:  strings.TrimSpace(req.CustomerPhone),
			CustomerEmail:  strings.TrimSpace(req.CustomerEmail),
			Notes:          req.Notes,
			CreatedAt:      now,
		}
		err = s.transactionStore.Put(c, transactionUID, transaction)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, ordersevents.TopicName, ordersevents.TransactionCreated{
			TransactionUID: transactionUID,
			CustomerName:   transaction.CustomerName,
			CustomerPhone:  transaction.CustomerPhone,
			CustomerEmail:  transaction.CustomerEmail,
			PaymentMethod:  transaction.PaymentMethod,
			TotalAmount:    transaction.TotalAmount,
			ItemCount:      len(transaction.Items),
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		result.transaction = transaction
		result.created = true
		return nil
	})
	if err != nil {
		// an account created above keeps its mailed login link
		return createResult{}, err
	}

	if !result.created {
		// lost a race against the same key: credentials belong to the winner only
		s.logger.Log(c, transactionUID, mylog.SeverityInfo, "Replay of idempotency key for transaction %s", transactionUID)
		result.provisioned = nil
		return result, nil
	}

	s.logger.Log(c, transactionUID, mylog.SeverityInfo, "Created transaction %s with total %d", transactionUID, result.transaction.TotalAmount)

	if result.provisioned != nil && result.provisioned.Created {
		_, err = s.provisioner.StartSession(w, r, result.provisioned.Account)
		if err != nil {
			// the order exists: the buyer can still sign in with the generated password
			s.logger.Log(c, transactionUID, mylog.SeverityError, "Error starting session: %s", err)
		}
	}

	return result, nil
}

func (s *service) getOrder(c context.Context, transactionUID string) (Transaction, error) {
	s.logger.Log(c, transactionUID, mylog.SeverityInfo, "Fetch status of transaction %s", transactionUID)

	transaction, found, err := s.transactionStore.Get(c, transactionUID)
	if err != nil {
		return Transaction{}, myerrors.NewInternalError(err)
	}
	if !found {
		return Transaction{}, myerrors.NewNotFoundError(fmt.Errorf("transaction with uid %s not found", transactionUID))
	}

	return transaction, nil
}
