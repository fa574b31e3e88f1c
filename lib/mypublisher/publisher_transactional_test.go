package mypublisher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/manualcheckout/lib/myevents"
	"github.com/MarcGrol/manualcheckout/lib/mypubsub"
	"github.com/MarcGrol/manualcheckout/lib/myqueue"
	"github.com/MarcGrol/manualcheckout/lib/mystore"
	"github.com/MarcGrol/manualcheckout/lib/mytime"
)

type parcelShipped struct {
	ParcelUID string
}

func (e parcelShipped) GetEventTypeName() string { return "parcel.shipped" }
func (e parcelShipped) GetAggregateName() string { return e.ParcelUID }

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *transactionalPublisher, *mystore.InMemoryStore[myevents.EventEnvelope], *mypubsub.MockPubSub, *myqueue.MockTaskQueuer) {
	c := context.TODO()
	outbox, _, err := mystore.NewInMemoryStore[myevents.EventEnvelope](c)
	require.NoError(t, err)

	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	pubsub := mypubsub.NewMockPubSub(ctrl)
	queue := myqueue.NewMockTaskQueuer(ctrl)

	return c, newTransactionalPublisher(outbox, pubsub, queue, nower), outbox, pubsub, queue
}

func TestPublisher(t *testing.T) {
	t.Run("publish stores envelope and enqueues trigger", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, publisher, outbox, _, queue := setup(t, ctrl)

		// given
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, task myqueue.Task) error {
			assert.Contains(t, task.WebhookURLPath, "/pubsub/parcel/")
			return nil
		})

		// when
		err := publisher.Publish(c, "parcel", parcelShipped{ParcelUID: "p1"})

		// then
		assert.NoError(t, err)
		envelopes, err := outbox.List(c)
		assert.NoError(t, err)
		require.Len(t, envelopes, 1)
		assert.Equal(t, "parcel.shipped", envelopes[0].EventTypeName)
		assert.Equal(t, "p1", envelopes[0].AggregateUID)
		assert.False(t, envelopes[0].Published)
	})

	t.Run("publishing the same event twice is idempotent", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, publisher, outbox, _, queue := setup(t, ctrl)

		// given
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil).Times(1)

		// when
		assert.NoError(t, publisher.Publish(c, "parcel", parcelShipped{ParcelUID: "p1"}))
		assert.NoError(t, publisher.Publish(c, "parcel", parcelShipped{ParcelUID: "p1"}))

		// then
		envelopes, _ := outbox.List(c)
		assert.Len(t, envelopes, 1)
	})

	t.Run("trigger publishes pending envelopes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, publisher, outbox, pubsub, queue := setup(t, ctrl)
		router := mux.NewRouter()
		publisher.RegisterEndpoints(c, router)

		// given
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)
		require.NoError(t, publisher.Publish(c, "parcel", parcelShipped{ParcelUID: "p1"}))
		pubsub.EXPECT().Publish(gomock.Any(), "parcel", gomock.Any()).Return(nil)

		// when
		request, err := http.NewRequest(http.MethodPut, "/pubsub/parcel/xyz", nil)
		require.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusOK, response.Code)
		envelopes, _ := outbox.List(c)
		require.Len(t, envelopes, 1)
		assert.True(t, envelopes[0].Published)
	})

	t.Run("trigger failure keeps envelope pending", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		c, publisher, outbox, pubsub, queue := setup(t, ctrl)
		router := mux.NewRouter()
		publisher.RegisterEndpoints(c, router)

		// given
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil)
		require.NoError(t, publisher.Publish(c, "parcel", parcelShipped{ParcelUID: "p1"}))
		pubsub.EXPECT().Publish(gomock.Any(), "parcel", gomock.Any()).Return(assert.AnError)
		queue.EXPECT().IsLastAttempt(gomock.Any(), "xyz").Return(int32(1), int32(5))

		// when
		request, _ := http.NewRequest(http.MethodPut, "/pubsub/parcel/xyz", nil)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, http.StatusInternalServerError, response.Code)
		envelopes, _ := outbox.List(c)
		require.Len(t, envelopes, 1)
		assert.False(t, envelopes[0].Published)
	})
}
