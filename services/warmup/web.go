package warmup

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/manualcheckout/lib/mycontext"
	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/myhttp"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/services/orders"
	"github.com/MarcGrol/manualcheckout/services/paymentdetails"
)

type PaymentMethodLister interface {
	List() []paymentdetails.PaymentMethod
}

type webService struct {
	logger           mylog.Logger
	paymentMethods   PaymentMethodLister
	transactionStore mystore.Store[orders.Transaction]
}

// Use dependency injection to isolate the infrastructure and ease testing
func NewService(paymentMethods PaymentMethodLister, transactionStore mystore.Store[orders.Transaction]) *webService {
	return &webService{
		logger:           mylog.New("warmup"),
		paymentMethods:   paymentMethods,
		transactionStore: transactionStore,
	}
}

func (s webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/_ah/warmup", s.warmupPage()).Methods("GET")
}

func (s *webService) warmupPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		if len(s.paymentMethods.List()) == 0 {
			errorWriter.WriteError(c, w, 1, myerrors.NewUnavailableError(fmt.Errorf("no payment methods configured")))
			return
		}

		_, _, err := s.transactionStore.Get(c, "warmup")
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewUnavailableError(fmt.Errorf("transaction store unavailable: %s", err)))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed warmup request",
		})
	}
}
