package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/manualcheckout/lib/myuuid"
	"github.com/MarcGrol/manualcheckout/shopper/cart"
	"github.com/MarcGrol/manualcheckout/shopper/shopclient"
)

var (
	giftCard = cart.Item{ID: "p1", Name: "Gift card", UnitPrice: 100, Quantity: 2}
	topUp    = cart.Item{ID: "p2", Name: "Top-up", UnitPrice: 50, Quantity: 1}
	eva      = Contact{FullName: "Eva Jansen", Email: "eva@example.com", Phone: "+31612345678"}
	receipt  = shopclient.Receipt{Filename: "receipt.pdf", Data: []byte("%PDF-1.4")}
)

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *Machine, *MemoryStore, *MockBackend, *myuuid.MockUUIDer) {
	c := context.TODO()
	store := NewMemoryStore()
	backend := NewMockBackend(ctrl)
	uuider := myuuid.NewMockUUIDer(ctrl)

	machine, err := New(c, store, backend, uuider)
	require.NoError(t, err)

	return c, machine, store, backend, uuider
}

// toReview walks a fresh machine up to the review step
func toReview(t *testing.T, c context.Context, machine *Machine) {
	require.NoError(t, machine.AddItem(c, giftCard))
	require.NoError(t, machine.AddItem(c, topUp))
	require.NoError(t, machine.Advance(c, StepDetails))
	require.NoError(t, machine.SetContact(c, eva))
	require.NoError(t, machine.Advance(c, StepPayment))
	require.NoError(t, machine.SetPaymentMethod(c, "bank_transfer"))
	require.NoError(t, machine.Advance(c, StepReview))
}

func TestSteps(t *testing.T) {
	t.Run("forward one step at a time with guards", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, _, _, _ := setup(t, ctrl)

		// then
		assert.Error(t, machine.Advance(c, StepDetails), "empty cart")
		require.NoError(t, machine.AddItem(c, giftCard))
		assert.ErrorIs(t, machine.Advance(c, StepPayment), ErrInvalidTransition)
		require.NoError(t, machine.Advance(c, StepDetails))
		assert.Error(t, machine.Advance(c, StepPayment), "no contact")
		assert.Error(t, machine.SetContact(c, Contact{FullName: "Eva"}))
		require.NoError(t, machine.SetContact(c, eva))
		require.NoError(t, machine.Advance(c, StepPayment))
		assert.Error(t, machine.Advance(c, StepReview), "no payment method")
		require.NoError(t, machine.SetPaymentMethod(c, "bank_transfer"))
		require.NoError(t, machine.Advance(c, StepReview))
		assert.ErrorIs(t, machine.Advance(c, StepProcessing), ErrInvalidTransition)
		assert.ErrorIs(t, machine.Advance(c, StepResult), ErrInvalidTransition)
		assert.Equal(t, StepReview, machine.Session().Step)
	})

	t.Run("jump back while idle", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, _, _, _ := setup(t, ctrl)
		toReview(t, c, machine)

		// when
		require.NoError(t, machine.Advance(c, StepCart))

		// then
		session := machine.Session()
		assert.Equal(t, StepCart, session.Step)
		assert.Len(t, session.Cart.Items, 2)
		assert.Equal(t, eva, session.Contact)

		require.NoError(t, machine.Advance(c, StepDetails))
		require.NoError(t, machine.Back(c))
		assert.Equal(t, StepCart, machine.Session().Step)
		assert.ErrorIs(t, machine.Back(c), ErrInvalidTransition)
	})

	t.Run("every mutation is persisted", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, store, backend, _ := setup(t, ctrl)

		// when
		toReview(t, c, machine)

		// then
		persisted, found, err := store.Load(c)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, machine.Session(), persisted)
		assert.Equal(t, 7, store.Saves)

		// and a new machine resumes where the old one was
		resumed, err := New(c, store, backend, myuuid.NewMockUUIDer(ctrl))
		assert.NoError(t, err)
		assert.Equal(t, machine.Session(), resumed.Session())
	})
}

func TestIdempotencyKey(t *testing.T) {
	t.Run("stable within one attempt", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, store, _, uuider := setup(t, ctrl)

		// given
		uuider.EXPECT().Create().Return("key-1").Times(1)

		// when
		first, err := machine.EnsureIdempotencyKey(c)
		require.NoError(t, err)
		second, err := machine.EnsureIdempotencyKey(c)
		require.NoError(t, err)

		// then
		assert.Equal(t, "key-1", first)
		assert.Equal(t, first, second)
		persisted, _, _ := store.Load(c)
		assert.Equal(t, "key-1", persisted.IdempotencyKey)
	})

	t.Run("reset discards the key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, store, _, uuider := setup(t, ctrl)

		// given
		gomock.InOrder(
			uuider.EXPECT().Create().Return("key-1"),
			uuider.EXPECT().Create().Return("key-2"),
		)
		_, err := machine.EnsureIdempotencyKey(c)
		require.NoError(t, err)

		// when
		require.NoError(t, machine.Reset(c))

		// then
		_, found, err := store.Load(c)
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, newSession(), machine.Session())

		key, err := machine.EnsureIdempotencyKey(c)
		assert.NoError(t, err)
		assert.Equal(t, "key-2", key)
	})

	t.Run("changed cart starts a new attempt", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, _, _, uuider := setup(t, ctrl)

		// given
		uuider.EXPECT().Create().Return("key-1")
		require.NoError(t, machine.AddItem(c, giftCard))
		_, err := machine.EnsureIdempotencyKey(c)
		require.NoError(t, err)

		// when
		require.NoError(t, machine.AddItem(c, topUp))

		// then
		assert.Empty(t, machine.Session().IdempotencyKey)
	})
}

func TestSubmit(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, store, backend, uuider := setup(t, ctrl)
		toReview(t, c, machine)

		// given
		uuider.EXPECT().Create().Return("key-1")
		backend.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, req shopclient.OrderRequest) (shopclient.OrderCreated, error) {
			assert.Equal(t, "key-1", req.IdempotencyKey)
			assert.Equal(t, "Eva Jansen", req.CustomerName)
			assert.Equal(t, "bank_transfer", req.PaymentMethod)
			assert.Equal(t, []shopclient.OrderItem{
				{ID: "p1", Name: "Gift card", Price: 100, Quantity: 2},
				{ID: "p2", Name: "Top-up", Price: 50, Quantity: 1},
			}, req.Items)

			// the key is durable before the request leaves
			persisted, _, _ := store.Load(c)
			assert.Equal(t, "key-1", persisted.IdempotencyKey)
			assert.Equal(t, StepProcessing, persisted.Step)
			return shopclient.OrderCreated{ID: "tx-1", Status: "pending", Account: &shopclient.Account{Username: "eva-ab12"}, GeneratedPassword: "pw"}, nil
		})

		// when
		result, err := machine.Submit(c)

		// then
		require.NoError(t, err)
		assert.Equal(t, "pw", result.GeneratedPassword)
		assert.Equal(t, "tx-1", result.Session.OrderID)
		assert.Equal(t, StepResult, result.Session.Step)
		assert.Equal(t, OrderProcessing, result.Session.OrderStatus)
		assert.Equal(t, "eva-ab12", result.Session.AccountUsername)

		// no second order for the same session
		_, err = machine.Submit(c)
		assert.Error(t, err)
		assert.ErrorIs(t, machine.AddItem(c, giftCard), ErrNotEditable)
		assert.ErrorIs(t, machine.Advance(c, StepCart), ErrInvalidTransition)
	})

	t.Run("transient failure keeps the key for a retry", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, _, backend, uuider := setup(t, ctrl)
		toReview(t, c, machine)

		// given
		uuider.EXPECT().Create().Return("key-1").Times(1)
		keys := []string{}
		backend.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, req shopclient.OrderRequest) (shopclient.OrderCreated, error) {
			keys = append(keys, req.IdempotencyKey)
			if len(keys) == 1 {
				return shopclient.OrderCreated{}, &shopclient.TransientError{Err: fmt.Errorf("timeout")}
			}
			return shopclient.OrderCreated{ID: "tx-1", Status: "pending"}, nil
		}).Times(2)

		// when
		_, err := machine.Submit(c)

		// then
		assert.True(t, shopclient.IsTransient(err))
		session := machine.Session()
		assert.Equal(t, StepReview, session.Step)
		assert.Equal(t, OrderIdle, session.OrderStatus)
		assert.NotEmpty(t, session.Error)
		assert.Len(t, session.Cart.Items, 2)

		// when retried
		result, err := machine.Submit(c)

		// then
		assert.NoError(t, err)
		assert.Equal(t, "tx-1", result.Session.OrderID)
		assert.Equal(t, []string{"key-1", "key-1"}, keys)
	})

	t.Run("rejected order can be retried from payment", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, _, backend, uuider := setup(t, ctrl)
		toReview(t, c, machine)

		// given
		uuider.EXPECT().Create().Return("key-1")
		backend.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(shopclient.OrderCreated{}, &shopclient.ValidationError{Field: "paymentMethod", Message: "unsupported"})

		// when
		_, err := machine.Submit(c)

		// then
		validationErr := &shopclient.ValidationError{}
		require.True(t, errors.As(err, &validationErr))
		session := machine.Session()
		assert.Equal(t, StepResult, session.Step)
		assert.Equal(t, OrderFailed, session.OrderStatus)
		assert.Contains(t, session.Error, "paymentMethod")

		// when
		require.NoError(t, machine.Retry(c))

		// then
		session = machine.Session()
		assert.Equal(t, StepPayment, session.Step)
		assert.Equal(t, OrderIdle, session.OrderStatus)
		assert.Equal(t, "key-1", session.IdempotencyKey)
	})

	t.Run("interrupted submission resumes at review with the same key", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c := context.TODO()
		store := NewMemoryStore()
		err := store.Save(c, Session{
			Step:           StepProcessing,
			Cart:           cart.Cart{Items: []cart.Item{giftCard}},
			Contact:        eva,
			PaymentMethod:  "bank_transfer",
			IdempotencyKey: "key-1",
			OrderStatus:    OrderProcessing,
		})
		require.NoError(t, err)

		// when
		machine, err := New(c, store, NewMockBackend(ctrl), myuuid.NewMockUUIDer(ctrl))

		// then
		require.NoError(t, err)
		session := machine.Session()
		assert.Equal(t, StepReview, session.Step)
		assert.Equal(t, OrderIdle, session.OrderStatus)
		assert.Equal(t, "key-1", session.IdempotencyKey)
	})
}

func TestConfirmPayment(t *testing.T) {
	t.Run("requires a placed order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, _, _, _ := setup(t, ctrl)

		// when
		_, err := machine.ConfirmPayment(c, "paid", receipt, true)

		// then
		assert.ErrorIs(t, err, ErrNoOrder)
	})

	t.Run("requires acknowledgement", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, _, backend, uuider := setup(t, ctrl)
		toReview(t, c, machine)
		uuider.EXPECT().Create().Return("key-1")
		backend.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(shopclient.OrderCreated{ID: "tx-1"}, nil)
		_, err := machine.Submit(c)
		require.NoError(t, err)

		// when
		_, err = machine.ConfirmPayment(c, "paid", receipt, false)

		// then
		assert.ErrorIs(t, err, ErrNotAcknowledged)
	})

	t.Run("too large receipt never leaves the client", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, _, backend, uuider := setup(t, ctrl)
		toReview(t, c, machine)
		uuider.EXPECT().Create().Return("key-1")
		backend.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(shopclient.OrderCreated{ID: "tx-1"}, nil)
		_, err := machine.Submit(c)
		require.NoError(t, err)

		// when
		_, err = machine.ConfirmPayment(c, "paid", shopclient.Receipt{Filename: "big.png", Data: make([]byte, MaxReceiptSize+1)}, true)

		// then
		tooLarge := &shopclient.PayloadTooLargeError{}
		assert.True(t, errors.As(err, &tooLarge))
	})

	t.Run("success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, machine, _, backend, uuider := setup(t, ctrl)
		toReview(t, c, machine)
		uuider.EXPECT().Create().Return("key-1")
		backend.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(shopclient.OrderCreated{ID: "tx-1"}, nil)
		_, err := machine.Submit(c)
		require.NoError(t, err)

		// given
		backend.EXPECT().SubmitConfirmation(gomock.Any(), "tx-1", "paid", receipt).Return("conf-1", nil)

		// when
		trackingCode, err := machine.ConfirmPayment(c, "paid", receipt, true)

		// then
		assert.NoError(t, err)
		assert.Equal(t, "conf-1", trackingCode)
		session := machine.Session()
		assert.Equal(t, OrderPaid, session.OrderStatus)
		assert.Equal(t, "conf-1", session.TrackingCode)
	})
}

func TestFileStore(t *testing.T) {
	c := context.TODO()
	store := NewFileStore(t.TempDir())

	_, found, err := store.Load(c)
	assert.NoError(t, err)
	assert.False(t, found)

	session := Session{Step: StepDetails, Cart: cart.Cart{Items: []cart.Item{giftCard}}, Contact: eva, OrderStatus: OrderIdle, IdempotencyKey: "key-1"}
	require.NoError(t, store.Save(c, session))

	loaded, found, err := store.Load(c)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, session, loaded)

	require.NoError(t, store.Clear(c))
	_, found, err = store.Load(c)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, store.Clear(c))
}
