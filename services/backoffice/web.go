package backoffice

import (
	"context"
	"fmt"
	"net/http"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/manualcheckout/lib/mycontext"
	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/myhttp"
	"github.com/MarcGrol/manualcheckout/lib/mymail"
	"github.com/MarcGrol/manualcheckout/lib/mypublisher"
	"github.com/MarcGrol/manualcheckout/lib/mypubsub"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
	"github.com/MarcGrol/manualcheckout/services/confirmation"
	"github.com/MarcGrol/manualcheckout/services/orders"
	"github.com/MarcGrol/manualcheckout/services/orders/ordersevents"
)

type webService struct {
	service *service
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(config Config, transactionStore mystore.Store[orders.Transaction], confirmationStore mystore.Store[confirmation.Confirmation],
	pub mypublisher.Publisher, sub mypubsub.PubSub, mailer mymail.Mailer, nower mytime.Nower) *webService {
	return &webService{
		service: newService(config, transactionStore, confirmationStore, pub, sub, mailer, nower),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	err := s.service.Subscribe(c)
	if err != nil {
		return err
	}

	router.HandleFunc("/api/backoffice/transactions", s.listTransactionsPage()).Methods("GET")
	router.HandleFunc("/api/backoffice/transactions/{id}", s.getTransactionPage()).Methods("GET")
	router.HandleFunc("/api/backoffice/transactions/{id}/status/{status}", s.changeStatusPage()).Methods("PUT")

	router.HandleFunc("/api/backoffice/event", s.handleEventEnvelope()).Methods("POST")

	return nil
}

func (s *webService) changeStatusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.service.logger)

		err := s.service.authenticate(r.BasicAuth())
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		transactionUID := mux.Vars(r)["id"]
		status := mux.Vars(r)["status"]

		transaction, err := s.service.changeStatus(c, transactionUID, status)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, transaction)
	}
}

func (s *webService) getTransactionPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.service.logger)

		err := s.service.authenticate(r.BasicAuth())
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		details, err := s.service.getTransaction(c, mux.Vars(r)["id"])
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, details)
	}
}

func (s *webService) listTransactionsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.service.logger)

		err := s.service.authenticate(r.BasicAuth())
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		req := listRequest{}
		err = formcodec.NewDecoder().Decode(&req, r.URL.Query())
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error parsing query: %s", err)))
			return
		}

		transactions, err := s.service.listTransactions(c, req.Status)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, transactions)
	}
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.service.logger)

		err := ordersevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed event",
		})
	}
}
