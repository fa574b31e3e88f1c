package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	formcodec "github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/MarcGrol/manualcheckout/lib/mycontext"
	"github.com/MarcGrol/manualcheckout/lib/myerrors"
	"github.com/MarcGrol/manualcheckout/lib/myhttp"
)

func (s *Service) RegisterEndpoints(c context.Context, router *mux.Router) {
	router.HandleFunc("/account", s.accountPage()).Methods("GET")
	router.HandleFunc("/account/login", s.loginLinkPage()).Methods("GET")
	router.HandleFunc("/account/login", s.loginPage()).Methods("POST")
}

func (s *Service) accountPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		account, found, err := s.CurrentAccount(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}
		if !found {
			errorWriter.WriteError(c, w, 2, myerrors.NewAuthenticationError(fmt.Errorf("not signed in")))
			return
		}

		resp, err := s.accountOverview(c, account)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, resp)
	}
}

func (s *Service) loginLinkPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := loginLinkRequest{}
		err := formcodec.NewDecoder().Decode(&req, r.URL.Query())
		if err != nil || req.Token == "" {
			errorWriter.WriteError(c, w, 1, myerrors.NewFieldErrorf("token", "missing login token"))
			return
		}

		account, err := s.redeemLoginLink(c, req.Token)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		_, err = s.StartSession(w, r, account)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		http.Redirect(w, r, "/account", http.StatusSeeOther)
	}
}

func (s *Service) loginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		req := loginRequest{}
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request: %s", err)))
			return
		}

		account, err := s.login(c, req.Email, req.Password)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		token, err := s.StartSession(w, r, account)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, loginResponse{
			Account:      account.View(),
			SessionToken: token,
		})
	}
}
