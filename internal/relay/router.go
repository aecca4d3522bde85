// SPDX-License-Identifier: Apache-2.0

// Package relay implements the message router: durable per-device envelope
// queues with live fan-out to connected sessions.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/metrics"
	"github.com/sam-im/sam-server/internal/store"
	"github.com/sam-im/sam-server/models"
)

// SubscriptionCapacity bounds the per-address notification channel. A full
// channel drops the push; sessions recover dropped notifications by
// resynchronizing against the queue snapshot.
const SubscriptionCapacity = 16

// Router is the store-and-forward core. Envelopes are persisted in the
// message store keyed by destination address; a connected session installs
// a subscription and is woken with the message id of each new envelope.
//
// At most one subscription exists per address. Queue order is the order in
// which Enqueue returns, and dispatch follows queue order for a single
// producer.
type Router struct {
	deviceStore  store.DeviceStore
	messageStore store.MessageStore

	mu   sync.Mutex
	subs map[models.Address]chan uuid.UUID

	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewRouter constructs a Router over the given stores.
func NewRouter(deviceStore store.DeviceStore, messageStore store.MessageStore, m *metrics.Metrics, logger *logger.Logger) *Router {
	return &Router{
		deviceStore:  deviceStore,
		messageStore: messageStore,
		subs:         make(map[models.Address]chan uuid.UUID),
		metrics:      m,
		logger:       logger,
	}
}

// Enqueue persists the envelope in its destination queue and, if the
// destination has a live subscription with free capacity, pushes the
// message id. A full channel drops the notification silently; the queue
// row is durable either way.
//
// Fails with [ErrUnknownRecipient] when the destination device does not
// exist.
func (r *Router) Enqueue(ctx context.Context, envelope models.ServerEnvelope) error {
	log := logger.FromContext(ctx)
	addr := envelope.DestAddr()

	if _, err := r.deviceStore.GetDevice(ctx, addr); err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) || errors.Is(err, store.ErrAccountNotFound) {
			return ErrUnknownRecipient
		}
		return fmt.Errorf("recipient lookup ended with error: %w", err)
	}

	if err := r.messageStore.AddEnvelope(ctx, envelope); err != nil {
		return fmt.Errorf("envelope enqueue ended with error: %w", err)
	}
	r.metrics.EnqueuedEnvelopes.Inc()

	r.mu.Lock()
	sub, ok := r.subs[addr]
	r.mu.Unlock()

	if ok {
		select {
		case sub <- envelope.ID:
		default:
			r.metrics.DroppedNotifications.Inc()
			log.Debug().Str("address", addr.String()).Msg("subscription channel full, notification dropped")
		}
	}

	return nil
}

// Subscribe installs the notification channel for addr and returns its
// receive end. Fails with [ErrAlreadySubscribed] when a subscription is
// already live, which is how concurrent sessions for the same device are
// rejected.
func (r *Router) Subscribe(addr models.Address) (<-chan uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[addr]; ok {
		return nil, ErrAlreadySubscribed
	}

	sub := make(chan uuid.UUID, SubscriptionCapacity)
	r.subs[addr] = sub
	return sub, nil
}

// Subscribed reports whether addr currently has a live subscription.
func (r *Router) Subscribed(addr models.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.subs[addr]
	return ok
}

// Unsubscribe removes the subscription for addr if present. Idempotent.
func (r *Router) Unsubscribe(addr models.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, addr)
}

// Fetch reads one queued envelope without removing it.
func (r *Router) Fetch(ctx context.Context, addr models.Address, id uuid.UUID) (models.ServerEnvelope, error) {
	return r.messageStore.GetEnvelope(ctx, addr, id)
}

// Delete removes one queued envelope.
func (r *Router) Delete(ctx context.Context, addr models.Address, id uuid.UUID) error {
	return r.messageStore.DeleteEnvelope(ctx, addr, id)
}

// IDs returns a snapshot of the queue's message ids in enqueue order.
func (r *Router) IDs(ctx context.Context, addr models.Address) ([]uuid.UUID, error) {
	return r.messageStore.EnvelopeIDs(ctx, addr)
}

// DeliveryFailure reports one destination device an envelope could not be
// enqueued for.
type DeliveryFailure struct {
	DeviceID uint32
	Err      error
}

// HandleClientMessage processes one inbound session frame from sender.
//
// An ack deletes the referenced envelope from the sender's own queue. A
// message frame fans the client envelope out to one destination device per
// content entry; each fan-out is an independent enqueue and partial
// failures are reported without rolling back successful ones. The source
// address of every fanned-out envelope is forced to sender, regardless of
// what the frame claimed.
func (r *Router) HandleClientMessage(ctx context.Context, sender models.Address, msg models.ClientMessage) ([]DeliveryFailure, error) {
	log := logger.FromContext(ctx)

	switch msg.Kind {
	case models.MessageKindAck:
		if err := r.Delete(ctx, sender, msg.ID); err != nil {
			return nil, fmt.Errorf("ack deletion ended with error: %w", err)
		}
		r.metrics.AckedEnvelopes.Inc()
		return nil, nil

	case models.MessageKindMessage:
		if msg.Message == nil {
			return nil, fmt.Errorf("message frame without envelope")
		}

		var failures []DeliveryFailure
		for deviceID, content := range msg.Message.Content {
			envelope := models.ServerEnvelope{
				ID:            newMessageID(),
				Type:          msg.Message.Type,
				DestAccountID: msg.Message.DestAccountID,
				DestDeviceID:  deviceID,
				SrcAccountID:  sender.AccountID,
				SrcDeviceID:   sender.DeviceID,
				Content:       content,
			}

			if err := r.Enqueue(ctx, envelope); err != nil {
				log.Err(err).
					Str("dest_account_id", msg.Message.DestAccountID.String()).
					Uint32("dest_device_id", deviceID).
					Msg("envelope fan-out failed for device")
				failures = append(failures, DeliveryFailure{DeviceID: deviceID, Err: err})
			}
		}
		return failures, nil

	default:
		return nil, fmt.Errorf("unsupported frame kind %d", msg.Kind)
	}
}

// newMessageID mints a time-ordered message id. UUIDv7 generation can fail
// only if the OS random source does; falling back to v4 keeps Enqueue
// total at the cost of ordering for that one id.
func newMessageID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
