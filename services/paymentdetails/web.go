package paymentdetails

import (
	"context"
	"net/http"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/manualcheckout/lib/mycontext"
	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/myhttp"
	"github.com/MarcGrol/manualcheckout/lib/mylog"
)

type webService struct {
	logger  mylog.Logger
	catalog *Catalog
}

func NewWebService(catalog *Catalog) *webService {
	return &webService{
		logger:  mylog.New("paymentdetails"),
		catalog: catalog,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/payment-details", s.paymentDetails()).Methods("GET")
	router.HandleFunc("/payment-methods", s.paymentMethods()).Methods("GET")
}

func (s *webService) paymentDetails() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := detailsRequest{}
		err := formcodec.NewDecoder().Decode(&req, r.URL.Query())
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(err))
			return
		}
		if req.Method == "" {
			errorWriter.WriteError(c, w, 2, myerrors.NewFieldErrorf("method", "missing payment method"))
			return
		}

		// unknown methods answer null, like methods without details
		errorWriter.Write(c, w, http.StatusOK, s.catalog.Details(req.Method))
	}
}

func (s *webService) paymentMethods() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		errorWriter.Write(c, w, http.StatusOK, s.catalog.List())
	}
}
