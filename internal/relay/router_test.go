package relay

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/metrics"
	"github.com/sam-im/sam-server/internal/store"
	"github.com/sam-im/sam-server/models"
)

func newTestRouter(t *testing.T) (*Router, store.DeviceStore) {
	t.Helper()

	deviceStore := store.NewMemoryDeviceStore(logger.Nop())
	messageStore := store.NewMemoryMessageStore(logger.Nop())

	return NewRouter(deviceStore, messageStore, metrics.New(), logger.Nop()), deviceStore
}

func createDevice(t *testing.T, devices store.DeviceStore, addr models.Address) {
	t.Helper()
	require.NoError(t, devices.CreateDevice(context.Background(), models.Device{
		AccountID: addr.AccountID,
		DeviceID:  addr.DeviceID,
	}))
}

func testEnvelope(dest models.Address, content string) models.ServerEnvelope {
	id, _ := uuid.NewV7()
	return models.ServerEnvelope{
		ID:            id,
		Type:          models.EnvelopeTypeCiphertext,
		DestAccountID: dest.AccountID,
		DestDeviceID:  dest.DeviceID,
		SrcAccountID:  uuid.New(),
		SrcDeviceID:   1,
		Content:       []byte(content),
	}
}

func TestRouter_Enqueue(t *testing.T) {
	ctx := context.Background()
	dest := models.Address{AccountID: uuid.New(), DeviceID: 1}

	t.Run("unknown recipient", func(t *testing.T) {
		router, _ := newTestRouter(t)

		err := router.Enqueue(ctx, testEnvelope(dest, "x"))
		assert.ErrorIs(t, err, ErrUnknownRecipient)
	})

	t.Run("persists and notifies a subscriber", func(t *testing.T) {
		router, devices := newTestRouter(t)
		createDevice(t, devices, dest)

		sub, err := router.Subscribe(dest)
		require.NoError(t, err)

		envelope := testEnvelope(dest, "hello")
		require.NoError(t, router.Enqueue(ctx, envelope))

		select {
		case got := <-sub:
			assert.Equal(t, envelope.ID, got)
		default:
			t.Fatal("expected a notification on the subscription channel")
		}

		stored, err := router.Fetch(ctx, dest, envelope.ID)
		require.NoError(t, err)
		assert.Equal(t, envelope, stored)
	})

	t.Run("queue survives a full subscription channel", func(t *testing.T) {
		router, devices := newTestRouter(t)
		createDevice(t, devices, dest)

		_, err := router.Subscribe(dest)
		require.NoError(t, err)

		sent := make([]uuid.UUID, 0, SubscriptionCapacity+4)
		for i := 0; i < SubscriptionCapacity+4; i++ {
			envelope := testEnvelope(dest, "overflow")
			require.NoError(t, router.Enqueue(ctx, envelope))
			sent = append(sent, envelope.ID)
		}

		ids, err := router.IDs(ctx, dest)
		require.NoError(t, err)
		assert.Equal(t, sent, ids, "every envelope is durable in enqueue order")
	})

	t.Run("enqueue order equals snapshot order", func(t *testing.T) {
		router, devices := newTestRouter(t)
		createDevice(t, devices, dest)

		var want []uuid.UUID
		for i := 0; i < 5; i++ {
			envelope := testEnvelope(dest, "ordered")
			require.NoError(t, router.Enqueue(ctx, envelope))
			want = append(want, envelope.ID)
		}

		ids, err := router.IDs(ctx, dest)
		require.NoError(t, err)
		assert.Equal(t, want, ids)
	})
}

func TestRouter_Subscribe(t *testing.T) {
	dest := models.Address{AccountID: uuid.New(), DeviceID: 1}

	t.Run("second subscription is rejected", func(t *testing.T) {
		router, _ := newTestRouter(t)

		_, err := router.Subscribe(dest)
		require.NoError(t, err)

		_, err = router.Subscribe(dest)
		assert.ErrorIs(t, err, ErrAlreadySubscribed)
	})

	t.Run("unsubscribe frees the slot and is idempotent", func(t *testing.T) {
		router, _ := newTestRouter(t)

		_, err := router.Subscribe(dest)
		require.NoError(t, err)

		router.Unsubscribe(dest)
		router.Unsubscribe(dest)

		_, err = router.Subscribe(dest)
		assert.NoError(t, err)
	})
}

func TestRouter_HandleClientMessage(t *testing.T) {
	ctx := context.Background()
	sender := models.Address{AccountID: uuid.New(), DeviceID: 1}
	destAccount := uuid.New()

	t.Run("ack deletes from the sender's queue", func(t *testing.T) {
		router, devices := newTestRouter(t)
		createDevice(t, devices, sender)

		envelope := testEnvelope(sender, "inbound")
		require.NoError(t, router.Enqueue(ctx, envelope))

		failures, err := router.HandleClientMessage(ctx, sender, models.ClientMessage{
			Kind: models.MessageKindAck,
			ID:   envelope.ID,
		})
		require.NoError(t, err)
		assert.Empty(t, failures)

		ids, err := router.IDs(ctx, sender)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("ack of an unknown id fails", func(t *testing.T) {
		router, devices := newTestRouter(t)
		createDevice(t, devices, sender)

		_, err := router.HandleClientMessage(ctx, sender, models.ClientMessage{
			Kind: models.MessageKindAck,
			ID:   uuid.New(),
		})
		assert.ErrorIs(t, err, store.ErrEnvelopeMissing)
	})

	t.Run("message fans out to every content entry", func(t *testing.T) {
		router, devices := newTestRouter(t)
		createDevice(t, devices, models.Address{AccountID: destAccount, DeviceID: 1})
		createDevice(t, devices, models.Address{AccountID: destAccount, DeviceID: 2})

		failures, err := router.HandleClientMessage(ctx, sender, models.ClientMessage{
			Kind: models.MessageKindMessage,
			Message: &models.ClientEnvelope{
				Type:          models.EnvelopeTypeCiphertext,
				DestAccountID: destAccount,
				Content: map[uint32][]byte{
					1: []byte("for device 1"),
					2: []byte("for device 2"),
				},
			},
		})
		require.NoError(t, err)
		assert.Empty(t, failures)

		for deviceID, content := range map[uint32]string{1: "for device 1", 2: "for device 2"} {
			addr := models.Address{AccountID: destAccount, DeviceID: deviceID}
			ids, err := router.IDs(ctx, addr)
			require.NoError(t, err)
			require.Len(t, ids, 1)

			envelope, err := router.Fetch(ctx, addr, ids[0])
			require.NoError(t, err)
			assert.Equal(t, []byte(content), envelope.Content)
			assert.Equal(t, sender.AccountID, envelope.SrcAccountID)
			assert.Equal(t, sender.DeviceID, envelope.SrcDeviceID)
		}
	})

	t.Run("partial fan-out failure keeps successful enqueues", func(t *testing.T) {
		router, devices := newTestRouter(t)
		createDevice(t, devices, models.Address{AccountID: destAccount, DeviceID: 1})
		// device 2 intentionally absent

		failures, err := router.HandleClientMessage(ctx, sender, models.ClientMessage{
			Kind: models.MessageKindMessage,
			Message: &models.ClientEnvelope{
				Type:          models.EnvelopeTypeCiphertext,
				DestAccountID: destAccount,
				Content: map[uint32][]byte{
					1: []byte("delivered"),
					2: []byte("undeliverable"),
				},
			},
		})
		require.NoError(t, err)
		require.Len(t, failures, 1)
		assert.Equal(t, uint32(2), failures[0].DeviceID)
		assert.ErrorIs(t, failures[0].Err, ErrUnknownRecipient)

		ids, err := router.IDs(ctx, models.Address{AccountID: destAccount, DeviceID: 1})
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})

	t.Run("message frame without envelope fails", func(t *testing.T) {
		router, _ := newTestRouter(t)

		_, err := router.HandleClientMessage(ctx, sender, models.ClientMessage{
			Kind: models.MessageKindMessage,
		})
		assert.Error(t, err)
	})
}
