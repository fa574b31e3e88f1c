package myblob

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarcGrol/manualcheckout/lib/myerrors"
)

func TestLocalBlobStore(t *testing.T) {
	c := context.TODO()
	store, cleanup, err := New(c, "", t.TempDir(), "http://localhost:8080/")
	require.NoError(t, err)
	defer cleanup()

	router := mux.NewRouter()
	store.RegisterEndpoints(c, router)

	t.Run("put returns fetchable url", func(t *testing.T) {
		url, err := store.Put(c, "tx-1/conf-1.pdf", "application/pdf", []byte("%PDF-1.4 receipt"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/receipts/tx-1/conf-1.pdf", url)

		request, _ := http.NewRequest(http.MethodGet, "/receipts/tx-1/conf-1.pdf", nil)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		assert.Equal(t, http.StatusOK, response.Code)
		body, _ := io.ReadAll(response.Body)
		assert.Equal(t, "%PDF-1.4 receipt", string(body))
	})

	t.Run("existing blob is never overwritten", func(t *testing.T) {
		_, err := store.Put(c, "tx-1/conf-1.pdf", "application/pdf", []byte("other"))
		assert.Error(t, err)
		assert.Equal(t, http.StatusConflict, myerrors.GetHTTPStatus(err))
	})

	t.Run("path traversal stays inside directory", func(t *testing.T) {
		url, err := store.Put(c, "../../escape.png", "image/png", []byte("png"))
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/receipts/escape.png", url)
	})

	t.Run("delete removes blob and tolerates unknown", func(t *testing.T) {
		_, err := store.Put(c, "tx-2/conf-2.png", "image/png", []byte("png"))
		require.NoError(t, err)

		err = store.Delete(c, "tx-2/conf-2.png")
		require.NoError(t, err)

		request, _ := http.NewRequest(http.MethodGet, "/receipts/tx-2/conf-2.png", nil)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)
		assert.Equal(t, http.StatusNotFound, response.Code)

		err = store.Delete(c, "tx-2/conf-2.png")
		assert.NoError(t, err)
	})

	t.Run("unknown blob", func(t *testing.T) {
		request, _ := http.NewRequest(http.MethodGet, "/receipts/nope.png", nil)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		assert.Equal(t, http.StatusNotFound, response.Code)
	})
}
