// SPDX-License-Identifier: Apache-2.0

// Package session runs the authenticated framed session over an upgraded
// websocket connection: inbound client frames are handed to the message
// router, queued envelopes are dispatched out, and acknowledgements delete
// delivered envelopes.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/sam-im/sam-server/internal/logger"
	"github.com/sam-im/sam-server/internal/metrics"
	"github.com/sam-im/sam-server/internal/relay"
	"github.com/sam-im/sam-server/internal/store"
	"github.com/sam-im/sam-server/internal/wire"
	"github.com/sam-im/sam-server/models"
)

const (
	// outboundCapacity bounds the dispatcher-to-sender handoff channel.
	outboundCapacity = 16

	// defaultResyncInterval is how often the dispatcher re-snapshots the
	// queue to recover notifications dropped on channel overflow.
	defaultResyncInterval = 30 * time.Second

	writeTimeout = 10 * time.Second
)

// Session drives one connected device over a websocket transport.
//
// Three tasks cooperate for the lifetime of the connection: the receiver
// decodes inbound frames and hands them to the router, the dispatcher
// turns queue notifications into outbound envelopes, and the sender owns
// all writes to the connection. Closing the transport cancels all three;
// Run guarantees the router subscription is released before it returns.
type Session struct {
	conn   *websocket.Conn
	user   models.AuthenticatedUser
	router *relay.Router

	resyncInterval time.Duration

	metrics *metrics.Metrics
	logger  *logger.Logger
}

// New constructs a Session for an already-authenticated, already-upgraded
// connection.
func New(conn *websocket.Conn, user models.AuthenticatedUser, router *relay.Router, m *metrics.Metrics, logger *logger.Logger) *Session {
	return &Session{
		conn:           conn,
		user:           user,
		router:         router,
		resyncInterval: defaultResyncInterval,
		metrics:        m,
		logger:         logger,
	}
}

// Run executes the session until the client disconnects, a protocol error
// occurs, or ctx is cancelled.
//
// A second session for the same device fails with
// [relay.ErrAlreadySubscribed] after sending a close frame; the existing
// session is not disturbed.
func (s *Session) Run(ctx context.Context) error {
	addr := s.user.Addr()
	log := s.logger.With().Str("address", addr.String()).Logger()

	notifications, err := s.router.Subscribe(addr)
	if err != nil {
		s.closeWith(websocket.CloseInternalServerErr, "session conflict")
		return fmt.Errorf("session subscribe ended with error: %w", err)
	}
	defer s.router.Unsubscribe(addr)

	s.metrics.ActiveSessions.Inc()
	defer s.metrics.ActiveSessions.Dec()

	log.Info().Msg("session started")

	outbound := make(chan models.ServerMessage, outboundCapacity)

	g, ctx := errgroup.WithContext(ctx)

	// Closing the connection unblocks the receiver's blocking read once
	// any task fails or ctx is cancelled.
	g.Go(func() error {
		<-ctx.Done()
		s.conn.Close()
		return nil
	})

	g.Go(func() error { return s.receive(ctx, addr, outbound) })
	g.Go(func() error { return s.dispatch(ctx, addr, notifications, outbound) })
	g.Go(func() error { return s.send(ctx, outbound) })

	err = g.Wait()

	if err == nil || isOrderlyClose(err) || errors.Is(err, context.Canceled) {
		log.Info().Msg("session closed")
		return nil
	}

	log.Err(err).Msg("session terminated")
	return err
}

// receive reads binary frames, decodes them, and hands them to the router.
// A decode failure terminates the session with a protocol-error close
// frame. Message frames are answered with an ack, or an error frame when
// any fan-out destination failed.
func (s *Session) receive(ctx context.Context, addr models.Address, outbound chan<- models.ServerMessage) error {
	log := s.logger.With().Str("address", addr.String()).Logger()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("frame read ended with error: %w", err)
		}

		msg, err := wire.DecodeClientMessage(data)
		if err != nil {
			s.closeWith(websocket.CloseProtocolError, "malformed frame")
			return err
		}

		failures, err := s.router.HandleClientMessage(ctx, addr, msg)

		reply := models.ServerMessage{Kind: models.MessageKindAck, ID: msg.ID}
		switch {
		case err != nil:
			log.Err(err).Msg("client frame handling failed")
			reply.Kind = models.MessageKindError
		case len(failures) > 0:
			reply.Kind = models.MessageKindError
		case msg.Kind != models.MessageKindMessage:
			// acks are not themselves acknowledged
			continue
		}

		select {
		case outbound <- reply:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dispatch delivers queued envelopes: a full queue sweep at session start,
// then notification-driven fetches, with periodic re-sweeps to recover
// notifications dropped on overflow.
func (s *Session) dispatch(ctx context.Context, addr models.Address, notifications <-chan uuid.UUID, outbound chan<- models.ServerMessage) error {
	delivered := make(map[uuid.UUID]struct{})

	if err := s.sweep(ctx, addr, delivered, outbound); err != nil {
		return err
	}

	ticker := time.NewTicker(s.resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case id := <-notifications:
			if err := s.deliver(ctx, addr, id, delivered, outbound); err != nil {
				return err
			}
		case <-ticker.C:
			if err := s.sweep(ctx, addr, delivered, outbound); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sweep snapshots the queue and delivers every envelope not yet sent in
// this session.
func (s *Session) sweep(ctx context.Context, addr models.Address, delivered map[uuid.UUID]struct{}, outbound chan<- models.ServerMessage) error {
	ids, err := s.router.IDs(ctx, addr)
	if err != nil {
		return fmt.Errorf("queue snapshot ended with error: %w", err)
	}

	for _, id := range ids {
		if err := s.deliver(ctx, addr, id, delivered, outbound); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) deliver(ctx context.Context, addr models.Address, id uuid.UUID, delivered map[uuid.UUID]struct{}, outbound chan<- models.ServerMessage) error {
	if _, ok := delivered[id]; ok {
		return nil
	}

	envelope, err := s.router.Fetch(ctx, addr, id)
	if err != nil {
		// Acked between notification and fetch.
		if errors.Is(err, store.ErrEnvelopeMissing) {
			return nil
		}
		return fmt.Errorf("envelope fetch ended with error: %w", err)
	}

	msg := models.ServerMessage{
		Kind:    models.MessageKindMessage,
		ID:      envelope.ID,
		Message: &envelope,
	}

	select {
	case outbound <- msg:
		delivered[id] = struct{}{}
		s.metrics.DispatchedEnvelopes.Inc()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send owns every write to the connection.
func (s *Session) send(ctx context.Context, outbound <-chan models.ServerMessage) error {
	for {
		select {
		case msg := <-outbound:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.BinaryMessage, wire.EncodeServerMessage(msg)); err != nil {
				s.closeWith(websocket.CloseInternalServerErr, "write failed")
				return fmt.Errorf("frame write ended with error: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// closeWith makes a best-effort attempt to send a close frame before the
// connection goes down.
func (s *Session) closeWith(code int, reason string) {
	deadline := time.Now().Add(writeTimeout)
	_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
}

// isOrderlyClose reports whether err is a normal client disconnect or a
// locally closed transport rather than a failure.
func isOrderlyClose(err error) bool {
	if errors.Is(err, net.ErrClosed) {
		return true
	}

	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}

	switch closeErr.Code {
	case websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived:
		return true
	}
	return false
}
