package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/manualcheckout/lib/myhttp"
	"github.com/MarcGrol/manualcheckout/lib/mypublisher"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
	"github.com/MarcGrol/manualcheckout/lib/myuuid"
	"github.com/MarcGrol/manualcheckout/services/accounts"
	"github.com/MarcGrol/manualcheckout/services/orders/ordersevents"
)

const validOrder = `{
	"customerName": "Eva Jansen",
	"customerPhone": "+31612345678",
	"paymentMethod": "bank_transfer",
	"items": [
		{"id": "p1", "name": "Gift card", "price": 100, "quantity": 2},
		{"id": "p2", "name": "Top-up", "price": 50, "quantity": 1}
	],
	"total": 9999,
	"idempotencyKey": "key-123"
}`

func TestCreateOrder(t *testing.T) {
	t.Run("total is computed on the server", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, provisioner, publisher := setup(t, ctrl)

		// given
		provisioner.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(accounts.Account{}, false, nil)
		publisher.EXPECT().Publish(gomock.Any(), ordersevents.TopicName, ordersevents.TransactionCreated{
			TransactionUID: myuuid.FromKey("key-123"),
			CustomerName:   "Eva Jansen",
			CustomerPhone:  "+31612345678",
			PaymentMethod:  "bank_transfer",
			TotalAmount:    250,
			ItemCount:      2,
		}).Return(nil)

		// when
		response := post(router, validOrder)

		// then
		assert.Equal(t, http.StatusCreated, response.Code)
		resp := CreateOrderResponse{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
		assert.Equal(t, myuuid.FromKey("key-123"), resp.ID)
		assert.Equal(t, StatusPending, resp.Status)
		assert.Nil(t, resp.Account)
		assert.Empty(t, resp.GeneratedPassword)

		transaction, found, err := storer.Get(ctx, resp.ID)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(250), transaction.TotalAmount)
		assert.Equal(t, StatusPending, transaction.Status)
		assert.Equal(t, mytime.ExampleTime, transaction.CreatedAt)
		assert.Empty(t, transaction.UserUID)
	})

	t.Run("replay creates exactly one transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, provisioner, publisher := setup(t, ctrl)

		// given
		provisioner.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(accounts.Account{}, false, nil).Times(1)
		publisher.EXPECT().Publish(gomock.Any(), ordersevents.TopicName, gomock.Any()).Return(nil).Times(1)

		// when
		first := post(router, validOrder)
		second := post(router, validOrder)

		// then
		assert.Equal(t, http.StatusCreated, first.Code)
		assert.Equal(t, http.StatusOK, second.Code)
		assert.Contains(t, second.Body.String(), myuuid.FromKey("key-123"))

		all, err := storer.List(ctx)
		assert.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("concurrent replay creates exactly one transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, provisioner, publisher := setup(t, ctrl)

		// given
		provisioner.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(accounts.Account{}, false, nil).MinTimes(1).MaxTimes(5)
		publisher.EXPECT().Publish(gomock.Any(), ordersevents.TopicName, gomock.Any()).Return(nil).Times(1)

		// when
		codes := make(chan int, 5)
		wg := sync.WaitGroup{}
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				codes <- post(router, validOrder).Code
			}()
		}
		wg.Wait()
		close(codes)

		// then
		created := 0
		for code := range codes {
			if code == http.StatusCreated {
				created++
			} else {
				assert.Equal(t, http.StatusOK, code)
			}
		}
		assert.Equal(t, 1, created)

		all, err := storer.List(ctx)
		assert.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("reused key with different payload returns the original", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, provisioner, publisher := setup(t, ctrl)

		// given
		provisioner.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(accounts.Account{}, false, nil)
		publisher.EXPECT().Publish(gomock.Any(), ordersevents.TopicName, gomock.Any()).Return(nil)
		post(router, validOrder)

		// when
		response := post(router, strings.Replace(validOrder, `"quantity": 2`, `"quantity": 7`, 1))

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		transaction, _, err := storer.Get(ctx, myuuid.FromKey("key-123"))
		assert.NoError(t, err)
		assert.Equal(t, int64(250), transaction.TotalAmount)
	})

	t.Run("validation identifies the first offending field", func(t *testing.T) {
		testCases := []struct {
			name  string
			body  string
			field string
		}{
			{"missing name", strings.Replace(validOrder, `"Eva Jansen"`, `""`, 1), "customerName"},
			{"missing phone", strings.Replace(validOrder, `"+31612345678"`, `" "`, 1), "customerPhone"},
			{"unknown method", strings.Replace(validOrder, `"bank_transfer"`, `"bitcoin"`, 1), "paymentMethod"},
			{"no items", `{"customerName":"a","customerPhone":"1","paymentMethod":"bank_transfer","items":[],"idempotencyKey":"k"}`, "items"},
			{"zero quantity", strings.Replace(validOrder, `"quantity": 1`, `"quantity": 0`, 1), "items[1].quantity"},
			{"negative price", strings.Replace(validOrder, `"price": 100`, `"price": -1`, 1), "items[0].price"},
			{"price beyond limit", strings.Replace(validOrder, `"price": 100`, `"price": 4611686018427387904`, 1), "items[0].price"},
			{"quantity beyond limit", strings.Replace(validOrder, `"quantity": 2`, `"quantity": 2147483647`, 1), "items[0].quantity"},
			{"total beyond int64", orderWithItems(9300, 100000000000, 10000), "items[9223].quantity"},
			{"missing key", strings.Replace(validOrder, `"key-123"`, `""`, 1), "idempotencyKey"},
			{"bad email", strings.Replace(validOrder, `"total": 9999`, `"customerEmail": "nope"`, 1), "customerEmail"},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				ctrl := gomock.NewController(t)
				defer ctrl.Finish()

				// setup
				ctx, router, storer, _, _ := setup(t, ctrl)

				// when
				response := post(router, tc.body)

				// then
				assert.Equal(t, http.StatusBadRequest, response.Code)
				errorResp := myhttp.ErrorResponse{}
				require.NoError(t, json.Unmarshal(response.Body.Bytes(), &errorResp))
				assert.Equal(t, tc.field, errorResp.Field)

				all, err := storer.List(ctx)
				assert.NoError(t, err)
				assert.Empty(t, all)
			})
		}
	})

	t.Run("new email provisions an account", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, provisioner, publisher := setup(t, ctrl)

		// given
		account := accounts.Account{UID: "acc-1", Email: "eva@example.com", Username: "eva-ab12", Role: accounts.RoleCustomer}
		provisioner.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(accounts.Account{}, false, nil)
		provisioner.EXPECT().Provision(gomock.Any(), accounts.ProvisionRequest{
			Email: "eva@example.com",
			Name:  "Eva Jansen",
			Phone: "+31612345678",
		}).Return(accounts.Provisioned{Account: account, Created: true, GeneratedPassword: "s3cretPassw0rd"}, nil)
		provisioner.EXPECT().StartSession(gomock.Any(), gomock.Any(), account).Return("token", nil)
		publisher.EXPECT().Publish(gomock.Any(), ordersevents.TopicName, gomock.Any()).Return(nil)

		// when
		response := post(router, strings.Replace(validOrder, `"total": 9999`, `"customerEmail": "eva@example.com"`, 1))

		// then
		assert.Equal(t, http.StatusCreated, response.Code)
		resp := CreateOrderResponse{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
		require.NotNil(t, resp.Account)
		assert.Equal(t, "acc-1", resp.Account.ID)
		assert.Equal(t, "s3cretPassw0rd", resp.GeneratedPassword)

		transaction, _, err := storer.Get(ctx, resp.ID)
		assert.NoError(t, err)
		assert.Equal(t, "acc-1", transaction.UserUID)
	})

	t.Run("existing email is linked without password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, provisioner, publisher := setup(t, ctrl)

		// given
		account := accounts.Account{UID: "acc-1", Email: "eva@example.com"}
		provisioner.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(accounts.Account{}, false, nil)
		provisioner.EXPECT().Provision(gomock.Any(), gomock.Any()).Return(accounts.Provisioned{Account: account}, nil)
		publisher.EXPECT().Publish(gomock.Any(), ordersevents.TopicName, gomock.Any()).Return(nil)

		// when
		response := post(router, strings.Replace(validOrder, `"total": 9999`, `"customerEmail": "eva@example.com"`, 1))

		// then
		assert.Equal(t, http.StatusCreated, response.Code)
		assert.NotContains(t, response.Body.String(), "generatedPassword")
		assert.Empty(t, response.Result().Cookies())
	})

	t.Run("replay with a new email does not provision", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, provisioner, publisher := setup(t, ctrl)

		// given
		provisioner.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(accounts.Account{}, false, nil).Times(1)
		publisher.EXPECT().Publish(gomock.Any(), ordersevents.TopicName, gomock.Any()).Return(nil).Times(1)
		first := post(router, validOrder)
		require.Equal(t, http.StatusCreated, first.Code)

		// when
		response := post(router, strings.Replace(validOrder, `"total": 9999`, `"customerEmail": "mallory@example.com"`, 1))

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		resp := CreateOrderResponse{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
		assert.Equal(t, myuuid.FromKey("key-123"), resp.ID)
		assert.Nil(t, resp.Account)
		assert.Empty(t, resp.GeneratedPassword)
		assert.Empty(t, response.Result().Cookies())

		transaction, _, err := storer.Get(ctx, resp.ID)
		assert.NoError(t, err)
		assert.Empty(t, transaction.UserUID)
		assert.Empty(t, transaction.CustomerEmail)
	})

	t.Run("failed store keeps credentials out of the response", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, provisioner, publisher := setup(t, ctrl)

		// given
		account := accounts.Account{UID: "acc-1", Email: "eva@example.com"}
		provisioner.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(accounts.Account{}, false, nil)
		provisioner.EXPECT().Provision(gomock.Any(), gomock.Any()).Return(accounts.Provisioned{Account: account, Created: true, GeneratedPassword: "s3cretPassw0rd"}, nil)
		publisher.EXPECT().Publish(gomock.Any(), ordersevents.TopicName, gomock.Any()).Return(fmt.Errorf("broker down"))

		// when
		response := post(router, strings.Replace(validOrder, `"total": 9999`, `"customerEmail": "eva@example.com"`, 1))

		// then
		assert.Equal(t, http.StatusInternalServerError, response.Code)
		assert.NotContains(t, response.Body.String(), "s3cretPassw0rd")
		assert.Empty(t, response.Result().Cookies())

		all, err := storer.List(ctx)
		assert.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("provisioning failure still creates the order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, provisioner, publisher := setup(t, ctrl)

		// given
		provisioner.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(accounts.Account{}, false, nil)
		provisioner.EXPECT().Provision(gomock.Any(), gomock.Any()).Return(accounts.Provisioned{}, fmt.Errorf("mail server down"))
		publisher.EXPECT().Publish(gomock.Any(), ordersevents.TopicName, gomock.Any()).Return(nil)

		// when
		response := post(router, strings.Replace(validOrder, `"total": 9999`, `"customerEmail": "eva@example.com"`, 1))

		// then
		assert.Equal(t, http.StatusCreated, response.Code)
		resp := CreateOrderResponse{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
		assert.Nil(t, resp.Account)
		assert.Empty(t, response.Result().Cookies())

		transaction, _, err := storer.Get(ctx, resp.ID)
		assert.NoError(t, err)
		assert.Empty(t, transaction.UserUID)
		assert.Equal(t, "eva@example.com", transaction.CustomerEmail)
	})

	t.Run("signed-in caller is not provisioned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, provisioner, publisher := setup(t, ctrl)

		// given
		provisioner.EXPECT().CurrentAccount(gomock.Any(), gomock.Any()).Return(accounts.Account{UID: "acc-9"}, true, nil)
		publisher.EXPECT().Publish(gomock.Any(), ordersevents.TopicName, gomock.Any()).Return(nil)

		// when
		response := post(router, strings.Replace(validOrder, `"total": 9999`, `"customerEmail": "eva@example.com"`, 1))

		// then
		assert.Equal(t, http.StatusCreated, response.Code)
		transaction, _, err := storer.Get(ctx, myuuid.FromKey("key-123"))
		assert.NoError(t, err)
		assert.Equal(t, "acc-9", transaction.UserUID)
	})

	t.Run("garbage body", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl)

		// when
		response := post(router, "{")

		// then
		assert.Equal(t, http.StatusBadRequest, response.Code)
	})
}

func TestGetOrder(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, _ := setup(t, ctrl)

		// given
		storer.Put(ctx, "tx-1", Transaction{
			UID:           "tx-1",
			TotalAmount:   250,
			Status:        StatusProcessing,
			PaymentMethod: "bank_transfer",
			Items:         []Item{{ID: "p1", Name: "Gift card", Price: 125, Quantity: 2}},
			CreatedAt:     mytime.ExampleTime,
		})

		// when
		request, _ := http.NewRequest(http.MethodGet, "/orders/tx-1", nil)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		resp := OrderResponse{}
		require.NoError(t, json.Unmarshal(response.Body.Bytes(), &resp))
		assert.Equal(t, "tx-1", resp.ID)
		assert.Equal(t, StatusProcessing, resp.Status)
		assert.Equal(t, int64(250), resp.Total)
		assert.Len(t, resp.Items, 1)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl)

		// when
		request, _ := http.NewRequest(http.MethodGet, "/orders/tx-unknown", nil)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusNotFound, response.Code)
	})
}

func TestOrderLister(t *testing.T) {
	// setup
	ctx := context.TODO()
	storer, _, err := mystore.NewInMemoryStore[Transaction](ctx)
	require.NoError(t, err)

	// given
	storer.Put(ctx, "tx-1", Transaction{UID: "tx-1", UserUID: "acc-1", Status: StatusPending, CreatedAt: mytime.ExampleTime})
	storer.Put(ctx, "tx-2", Transaction{UID: "tx-2", UserUID: "acc-1", Status: StatusCompleted, CreatedAt: mytime.ExampleTime.AddDate(0, 0, 1)})
	storer.Put(ctx, "tx-3", Transaction{UID: "tx-3", UserUID: "acc-2", Status: StatusPending, CreatedAt: mytime.ExampleTime})

	// when
	summaries, err := NewOrderLister(storer).ListForAccount(ctx, "acc-1")

	// then
	assert.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "tx-2", summaries[0].ID)
	assert.Equal(t, "completed", summaries[0].Status)
	assert.Equal(t, "tx-1", summaries[1].ID)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusProcessing))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusProcessing.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusProcessing.CanTransitionTo(StatusPending))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPending))

	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())

	_, ok := ParseStatus("shipped")
	assert.False(t, ok)
}

func orderWithItems(count int, price int64, quantity int) string {
	items := make([]string, 0, count)
	for i := 0; i < count; i++ {
		items = append(items, fmt.Sprintf(`{"id":"p%d","name":"Bulk","price":%d,"quantity":%d}`, i, price, quantity))
	}
	return fmt.Sprintf(`{"customerName":"a","customerPhone":"1","paymentMethod":"bank_transfer","items":[%s],"idempotencyKey":"k"}`, strings.Join(items, ","))
}

func post(router *mux.Router, body string) *httptest.ResponseRecorder {
	request, _ := http.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, mystore.Store[Transaction], *MockAccountProvisioner, *mypublisher.MockPublisher) {
	c := context.TODO()
	storer, _, err := mystore.NewInMemoryStore[Transaction](c)
	require.NoError(t, err)

	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	paymentMethods := NewMockPaymentMethods(ctrl)
	paymentMethods.EXPECT().Exists(gomock.Any()).DoAndReturn(func(code string) bool {
		return code == "bank_transfer" || code == "pay_on_pickup"
	}).AnyTimes()

	provisioner := NewMockAccountProvisioner(ctrl)

	publisher := mypublisher.NewMockPublisher(ctrl)
	publisher.EXPECT().CreateTopic(gomock.Any(), ordersevents.TopicName).Return(nil)

	router := mux.NewRouter()
	err = NewWebService(storer, paymentMethods, provisioner, publisher, nower).RegisterEndpoints(c, router)
	require.NoError(t, err)

	return c, router, storer, provisioner, publisher
}
