package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/manualcheckout/lib/mycontext"
	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/myhttp"
	"github.com/MarcGrol/manualcheckout/lib/mypublisher"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
	"github.com/MarcGrol/manualcheckout/services/orders/ordersevents"
)

const maxOrderBodySize = 1 << 20

type webService struct {
	service *service
}

func NewWebService(store mystore.Store[Transaction], paymentMethods PaymentMethods, provisioner AccountProvisioner, pub mypublisher.Publisher, nower mytime.Nower) *webService {
	return &webService{
		service: newService(store, paymentMethods, provisioner, pub, nower),
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	err := s.service.publisher.CreateTopic(c, ordersevents.TopicName)
	if err != nil {
		return err
	}

	router.HandleFunc("/orders", s.createOrderPage()).Methods("POST")
	router.HandleFunc("/orders/{id}", s.getOrderPage()).Methods("GET")

	return nil
}

func (s *webService) createOrderPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.service.logger)

		req := CreateOrderRequest{}
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBodySize)).Decode(&req)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				errorWriter.WriteError(c, w, 1, myerrors.NewPayloadTooLargeError(err))
				return
			}
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error parsing order: %s", err)))
			return
		}

		result, err := s.service.createOrder(c, w, r, req)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		resp := CreateOrderResponse{
			ID:     result.transaction.UID,
			Status: result.transaction.Status,
		}
		if result.provisioned != nil {
			view := result.provisioned.Account.View()
			resp.Account = &view
			if result.provisioned.Created {
				resp.GeneratedPassword = result.provisioned.GeneratedPassword
			}
		}

		status := http.StatusOK
		if result.created {
			status = http.StatusCreated
		}
		errorWriter.Write(c, w, status, resp)
	}
}

func (s *webService) getOrderPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.service.logger)

		transactionUID := mux.Vars(r)["id"]

		transaction, err := s.service.getOrder(c, transactionUID)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, transaction.response())
	}
}
