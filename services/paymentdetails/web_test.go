package paymentdetails

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *mux.Router {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)

	router := mux.NewRouter()
	NewWebService(catalog).RegisterEndpoints(context.TODO(), router)
	return router
}

func get(router *mux.Router, url string) *httptest.ResponseRecorder {
	request, _ := http.NewRequest(http.MethodGet, url, nil)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func TestPaymentDetails(t *testing.T) {
	t.Run("known method with details", func(t *testing.T) {
		// when
		response := get(setup(t), "/payment-details?method=bank_transfer")

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		details := PaymentDetails{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &details))
		assert.Equal(t, "Bank transfer", details.Title)
		assert.Equal(t, "NL91 ABNA 0417 1643 00", details.Value)
		assert.NotEmpty(t, details.Instructions)
	})

	t.Run("method without details", func(t *testing.T) {
		response := get(setup(t), "/payment-details?method=pay_on_pickup")

		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, "null", strings.TrimSpace(response.Body.String()))
	})

	t.Run("unknown method", func(t *testing.T) {
		response := get(setup(t), "/payment-details?method=bitcoin")

		assert.Equal(t, http.StatusOK, response.Code)
		assert.Equal(t, "null", strings.TrimSpace(response.Body.String()))
	})

	t.Run("missing method", func(t *testing.T) {
		response := get(setup(t), "/payment-details")

		assert.Equal(t, http.StatusBadRequest, response.Code)
		assert.Contains(t, response.Body.String(), `"Field": "method"`)
	})

	t.Run("list methods", func(t *testing.T) {
		response := get(setup(t), "/payment-methods")

		assert.Equal(t, http.StatusOK, response.Code)
		methods := []PaymentMethod{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &methods))
		assert.Len(t, methods, 4)
		assert.Equal(t, "bank_transfer", methods[0].Code)
	})
}

func TestParseCatalog(t *testing.T) {
	t.Run("duplicate code", func(t *testing.T) {
		_, err := ParseCatalog([]byte("methods:\n  - {code: a, label: A}\n  - {code: a, label: B}\n"))
		assert.Error(t, err)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseCatalog([]byte("methods: []\n"))
		assert.Error(t, err)
	})

	t.Run("exists", func(t *testing.T) {
		catalog, err := ParseCatalog([]byte("methods:\n  - {code: a, label: A}\n"))
		require.NoError(t, err)
		assert.True(t, catalog.Exists("a"))
		assert.False(t, catalog.Exists("b"))
		assert.Nil(t, catalog.Details("a"))
	})
}
