package confirmation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/manualcheckout/lib/myblob"
	"github.com/MarcGrol/manualcheckout/lib/mycontext"
	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/myhttp"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/mypublisher"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
	"github.com/MarcGrol/manualcheckout/lib/myuuid"
	"github.com/MarcGrol/manualcheckout/services/orders"
	"github.com/MarcGrol/manualcheckout/services/orders/ordersevents"
)

const maxFormMemory = 1 << 20

type webService struct {
	service *service
}

func NewWebService(transactionStore mystore.Store[orders.Transaction], confirmationStore mystore.Store[Confirmation], blobStore myblob.BlobStore,
	provisioner AccountProvisioner, pub mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer) *webService {
	return &webService{
		service: newService(transactionStore, confirmationStore, blobStore, provisioner, pub, nower, uuider),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	err := s.service.publisher.CreateTopic(c, ordersevents.TopicName)
	if err != nil {
		return err
	}

	router.HandleFunc("/transactions/confirm", s.confirmPage()).Methods("POST")

	return nil
}

func (s *webService) confirmPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.service.logger)

		req, rcpt, err := parseConfirmRequest(w, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		result, err := s.service.confirm(c, req, rcpt)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		if result.provisioned.Created {
			// only a freshly created account signs in here; an existing one uses its own credentials
			_, err = s.service.provisioner.StartSession(w, r, result.provisioned.Account)
			if err != nil {
				s.service.logger.Log(c, result.confirmation.TransactionUID, mylog.SeverityError, "Error starting session: %s", err)
			}
		}

		errorWriter.Write(c, w, http.StatusOK, confirmResponse{
			ID: result.confirmation.UID,
		})
	}
}

func parseConfirmRequest(w http.ResponseWriter, r *http.Request) (confirmRequest, receipt, error) {
	if r.ContentLength > maxRequestSize {
		return confirmRequest{}, receipt{}, myerrors.NewPayloadTooLargeError(fmt.Errorf("request of %d bytes exceeds %d", r.ContentLength, maxRequestSize))
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestSize)

	err := r.ParseMultipartForm(maxFormMemory)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return confirmRequest{}, receipt{}, myerrors.NewPayloadTooLargeError(err)
		}
		return confirmRequest{}, receipt{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing multipart form: %s", err))
	}

	req := confirmRequest{}
	err = formcodec.NewDecoder().Decode(&req, r.MultipartForm.Value)
	if err != nil {
		return confirmRequest{}, receipt{}, myerrors.NewInvalidInputError(fmt.Errorf("error decoding form: %s", err))
	}
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	if req.TransactionID == "" {
		return confirmRequest{}, receipt{}, myerrors.NewFieldErrorf("transactionId", "missing transaction id")
	}
	if strings.TrimSpace(req.Message) == "" {
		return confirmRequest{}, receipt{}, myerrors.NewFieldErrorf("message", "missing message")
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		return confirmRequest{}, receipt{}, myerrors.NewFieldErrorf("receipt", "missing receipt: %s", err)
	}
	defer file.Close()

	if header.Size > maxReceiptSize {
		return confirmRequest{}, receipt{}, myerrors.NewPayloadTooLargeError(fmt.Errorf("receipt of %d bytes exceeds %d", header.Size, maxReceiptSize))
	}

	data, err := io.ReadAll(io.LimitReader(file, maxReceiptSize+1))
	if err != nil {
		return confirmRequest{}, receipt{}, myerrors.NewInvalidInputError(fmt.Errorf("error reading receipt: %s", err))
	}
	if len(data) > maxReceiptSize {
		return confirmRequest{}, receipt{}, myerrors.NewPayloadTooLargeError(fmt.Errorf("receipt exceeds %d bytes", maxReceiptSize))
	}
	if len(data) == 0 {
		return confirmRequest{}, receipt{}, myerrors.NewFieldErrorf("receipt", "empty receipt")
	}

	return req, receipt{
		filename:    header.Filename,
		contentType: http.DetectContentType(data),
		data:        data,
	}, nil
}
