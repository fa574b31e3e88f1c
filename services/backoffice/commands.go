package backoffice

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/services/orders"
	"github.com/MarcGrol/manualcheckout/services/orders/ordersevents"
)

func (s *service) authenticate(username, password string, ok bool) error {
	if !ok || s.config.Username == "" || s.config.Password == "" {
		return myerrors.NewAuthenticationError(fmt.Errorf("missing back-office credentials"))
	}
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(s.config.Username)) == 1
	passwordMatch := subtle.ConstantTimeCompare([]byte(password), []byte(s.config.Password)) == 1
	if !userMatch || !passwordMatch {
		return myerrors.NewAuthenticationError(fmt.Errorf("invalid back-office credentials"))
	}
	return nil
}

// changeStatus is the only write path for transaction status
func (s *service) changeStatus(c context.Context, transactionUID string, newStatus string) (orders.Transaction, error) {
	next, ok := orders.ParseStatus(newStatus)
	if !ok {
		return orders.Transaction{}, myerrors.NewFieldErrorf("status", "unknown status %q", newStatus)
	}

	s.logger.Log(c, transactionUID, mylog.SeverityInfo, "Back office: change status of transaction %s -> %s", transactionUID, next)

	now := s.nower.Now()

	var transaction orders.Transaction
	err := s.transactionStore.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		var found bool
		var err error
		transaction, found, err = s.transactionStore.Get(c, transactionUID)
		if err != nil {
			return myerrors.NewInternalError(err)
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("transaction with uid %s not found", transactionUID))
		}

		if transaction.Status == next {
			return nil
		}
		if !transaction.Status.CanTransitionTo(next) {
			return myerrors.NewConflictError(fmt.Errorf("transaction %s cannot go from %s to %s", transactionUID, transaction.Status, next))
		}

		previous := transaction.Status
		transaction.Status = next
		transaction.LastModified = &now

		err = s.transactionStore.Put(c, transactionUID, transaction)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, ordersevents.TopicName, ordersevents.TransactionStatusChanged{
			TransactionUID: transactionUID,
			OldStatus:      string(previous),
			NewStatus:      string(next),
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		return orders.Transaction{}, err
	}

	return transaction, nil
}

func (s *service) getTransaction(c context.Context, transactionUID string) (transactionDetails, error) {
	transaction, found, err := s.transactionStore.Get(c, transactionUID)
	if err != nil {
		return transactionDetails{}, myerrors.NewInternalError(err)
	}
	if !found {
		return transactionDetails{}, myerrors.NewNotFoundError(fmt.Errorf("transaction with uid %s not found", transactionUID))
	}

	confirmations, err := s.confirmationStore.Query(c, []mystore.Filter{
		{Field: "TransactionUID", Compare: "=", Value: transactionUID},
	}, "CreatedAt")
	if err != nil {
		return transactionDetails{}, myerrors.NewInternalError(err)
	}

	return transactionDetails{
		Transaction:   transaction,
		Confirmations: confirmations,
	}, nil
}

func (s *service) listTransactions(c context.Context, status string) ([]orders.Transaction, error) {
	filters := []mystore.Filter{}
	if status != "" {
		parsed, ok := orders.ParseStatus(status)
		if !ok {
			return nil, myerrors.NewFieldErrorf("status", "unknown status %q", status)
		}
		filters = append(filters, mystore.Filter{Field: "Status", Compare: "=", Value: string(parsed)})
	}

	transactions, err := s.transactionStore.Query(c, filters, "-CreatedAt")
	if err != nil {
		return nil, myerrors.NewInternalError(err)
	}
	return transactions, nil
}
