package confirmation

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/services/accounts"
	"github.com/MarcGrol/manualcheckout/services/orders"
	"github.com/MarcGrol/manualcheckout/services/orders/ordersevents"
)

var receiptExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/bmp":       ".bmp",
}

// receiptExtension accepts images and pdf documents, judged by content rather than the client's claim
func receiptExtension(contentType string) (string, bool) {
	if ext, ok := receiptExtensions[contentType]; ok {
		return ext, true
	}
	if strings.HasPrefix(contentType, "image/") {
		return path.Ext("x." + strings.TrimPrefix(contentType, "image/")), true
	}
	return "", false
}

func (s *service) activeTransaction(c context.Context, transactionUID string) (orders.Transaction, error) {
	transaction, found, err := s.transactionStore.Get(c, transactionUID)
	if err != nil {
		return orders.Transaction{}, myerrors.NewInternalError(err)
	}
	if !found {
		return orders.Transaction{}, myerrors.NewNotFoundError(fmt.Errorf("transaction with uid %s not found", transactionUID))
	}
	if transaction.Status.IsTerminal() {
		return orders.Transaction{}, myerrors.NewConflictError(fmt.Errorf("transaction %s is already %s", transactionUID, transaction.Status))
	}
	return transaction, nil
}

type confirmResult struct {
	confirmation Confirmation
	provisioned  accounts.Provisioned
}

func (s *service) confirm(c context.Context, req confirmRequest, rcpt receipt) (confirmResult, error) {
	ext, ok := receiptExtension(rcpt.contentType)
	if !ok {
		return confirmResult{}, myerrors.NewUnsupportedMediaTypeError(fmt.Errorf("receipt of type %s is not an image or pdf", rcpt.contentType))
	}

	transaction, err := s.activeTransaction(c, req.TransactionID)
	if err != nil {
		return confirmResult{}, err
	}

	confirmationUID := s.uuider.Create()

	s.logger.Log(c, transaction.UID, mylog.SeverityInfo, "Storing receipt %s (%d bytes) for confirmation %s", rcpt.filename, len(rcpt.data), confirmationUID)

	receiptName := path.Join(transaction.UID, confirmationUID+ext)
	receiptURL, err := s.blobStore.Put(c, receiptName, rcpt.contentType, rcpt.data)
	if err != nil {
		return confirmResult{}, myerrors.NewInternalError(fmt.Errorf("error storing receipt: %w", err))
	}

	confirmation := Confirmation{
		UID:                confirmationUID,
		TransactionUID:     transaction.UID,
		Message:            req.Message,
		ReceiptURL:         receiptURL,
		ReceiptContentType: rcpt.contentType,
		CreatedAt:          s.nower.Now(),
	}

	err = s.confirmationStore.RunInTransaction(c, func(c context.Context) error {
		err := s.confirmationStore.Put(c, confirmationUID, confirmation)
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		err = s.publisher.Publish(c, ordersevents.TopicName, ordersevents.ConfirmationSubmitted{
			TransactionUID:  transaction.UID,
			ConfirmationUID: confirmationUID,
			Message:         req.Message,
			ReceiptURL:      receiptURL,
		})
		if err != nil {
			return myerrors.NewInternalError(err)
		}

		return nil
	})
	if err != nil {
		// nothing refers to the receipt
		deleteErr := s.blobStore.Delete(c, receiptName)
		if deleteErr != nil {
			s.logger.Log(c, transaction.UID, mylog.SeverityError, "Error removing receipt %s: %s", receiptName, deleteErr)
		}
		return confirmResult{}, err
	}

	return confirmResult{
		confirmation: confirmation,
		provisioned:  s.provisionAccount(c, transaction),
	}, nil
}

// provisionAccount lets the buyer sign in later; the confirmation itself does not depend on it
func (s *service) provisionAccount(c context.Context, transaction orders.Transaction) accounts.Provisioned {
	if transaction.UserUID != "" || transaction.CustomerEmail == "" {
		return accounts.Provisioned{}
	}

	provisioned, err := s.provisioner.Provision(c, accounts.ProvisionRequest{
		Email: transaction.CustomerEmail,
		Name:  transaction.CustomerName,
		Phone: transaction.CustomerPhone,
	})
	if err != nil {
		s.logger.Log(c, transaction.UID, mylog.SeverityError, "Error provisioning account for %s: %s", transaction.CustomerEmail, err)
		return accounts.Provisioned{}
	}
	if provisioned.Created {
		s.logger.Log(c, transaction.UID, mylog.SeverityInfo, "Provisioned account %s on confirmation", provisioned.Account.UID)
	}
	return provisioned
}
