/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"context"
	"sync"

	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/anixon604/bootcamp-cordapp/token/services/view"
	"github.com/hashicorp/go-uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("token-sdk.comm")

const (
	defaultMailboxSize = 64
	// closedSessionsSize bounds the ids of closed sessions remembered by a hub
	closedSessionsSize = 4096
)

var (
	// ErrUnreachable is returned when a message cannot reach its recipient
	ErrUnreachable = errors.New("party unreachable")
	// ErrSessionClosed is returned when sending on a closed session
	ErrSessionClosed = errors.New("session closed")
)

// Transport moves messages between nodes.
// Messages sent by the same sender to the same recipient must be delivered in send order.
type Transport interface {
	Send(ctx context.Context, msg *view.Message) error
}

// ResponderHandler is notified of sessions opened by remote parties
type ResponderHandler interface {
	HandleSession(session view.Session, first *view.Message)
}

// Hub multiplexes the sessions of a node over a transport
type Hub struct {
	me          view.Identity
	transport   Transport
	mailboxSize int

	lock     sync.RWMutex
	handler  ResponderHandler
	sessions map[string]*session
	// late messages for these sessions are dropped instead of opening a new responder
	closed *lru.Cache[string, struct{}]
}

func NewHub(me view.Identity, transport Transport) *Hub {
	closed, err := lru.New[string, struct{}](closedSessionsSize)
	if err != nil {
		panic(err)
	}
	return &Hub{
		me:          me,
		transport:   transport,
		mailboxSize: defaultMailboxSize,
		sessions:    map[string]*session{},
		closed:      closed,
	}
}

func (h *Hub) Me() view.Identity {
	return h.me
}

// SetResponderHandler sets the handler of remotely initiated sessions
func (h *Hub) SetResponderHandler(handler ResponderHandler) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.handler = handler
}

// NewSession opens a session to the passed party with a fresh identifier
func (h *Hub) NewSession(caller string, contextID string, party view.Identity) (view.Session, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, errors.Wrap(err, "failed generating session id")
	}
	s := h.newSession(id, caller, contextID, party)
	h.lock.Lock()
	h.sessions[id] = s
	h.lock.Unlock()
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] opened session [%s] to [%s] for [%s]", h.me, id, party, caller)
	}
	return s, nil
}

// Deliver routes an incoming message to its session.
// A message for an unknown session opens a responder session.
func (h *Hub) Deliver(ctx context.Context, msg *view.Message) error {
	if msg == nil {
		return errors.New("nil message")
	}
	if msg.ToEndpoint != h.me {
		return errors.Wrapf(ErrUnreachable, "message for [%s] delivered to [%s]", msg.ToEndpoint, h.me)
	}
	h.lock.Lock()
	s, ok := h.sessions[msg.SessionID]
	created := false
	if !ok {
		if h.closed.Contains(msg.SessionID) {
			h.lock.Unlock()
			logger.Debugf("[%s] dropping message for closed session [%s] from [%s]", h.me, msg.SessionID, msg.FromEndpoint)
			return nil
		}
		if msg.Status == view.ERROR {
			h.lock.Unlock()
			logger.Debugf("[%s] dropping error for unknown session [%s]", h.me, msg.SessionID)
			return nil
		}
		if h.handler == nil {
			h.lock.Unlock()
			return errors.Errorf("no responder handler at [%s]", h.me)
		}
		s = h.newSession(msg.SessionID, msg.Caller, msg.ContextID, msg.FromEndpoint)
		h.sessions[msg.SessionID] = s
		created = true
	}
	handler := h.handler
	h.lock.Unlock()

	if s.party != msg.FromEndpoint {
		return errors.Errorf("session [%s] is bound to [%s], message from [%s]", msg.SessionID, s.party, msg.FromEndpoint)
	}
	if err := s.enqueue(ctx, msg); err != nil {
		return err
	}
	if created {
		handler.HandleSession(s, msg)
	}
	return nil
}

func (h *Hub) remove(id string) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.sessions, id)
	h.closed.Add(id, struct{}{})
}

// Sessions returns the number of open sessions
func (h *Hub) Sessions() int {
	h.lock.RLock()
	defer h.lock.RUnlock()
	return len(h.sessions)
}

func (h *Hub) newSession(id, caller, contextID string, party view.Identity) *session {
	return &session{
		hub:       h,
		id:        id,
		caller:    caller,
		contextID: contextID,
		party:     party,
		mailbox:   make(chan *view.Message, h.mailboxSize),
	}
}

type session struct {
	hub       *Hub
	id        string
	caller    string
	contextID string
	party     view.Identity
	mailbox   chan *view.Message

	lock   sync.RWMutex
	closed bool
}

func (s *session) Info() view.SessionInfo {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return view.SessionInfo{
		ID:       s.id,
		Caller:   s.caller,
		Endpoint: s.party,
		Closed:   s.closed,
	}
}

func (s *session) Send(payload []byte) error {
	return s.SendWithContext(context.Background(), payload)
}

func (s *session) SendWithContext(ctx context.Context, payload []byte) error {
	return s.send(ctx, view.OK, payload)
}

func (s *session) SendError(payload []byte) error {
	return s.send(context.Background(), view.ERROR, payload)
}

func (s *session) send(ctx context.Context, status int32, payload []byte) error {
	s.lock.RLock()
	closed := s.closed
	s.lock.RUnlock()
	if closed {
		return errors.Wrapf(ErrSessionClosed, "session [%s]", s.id)
	}
	msg := &view.Message{
		SessionID:    s.id,
		ContextID:    s.contextID,
		Caller:       s.caller,
		FromEndpoint: s.hub.me,
		ToEndpoint:   s.party,
		Status:       status,
		Payload:      payload,
	}
	if err := s.hub.transport.Send(ctx, msg); err != nil {
		return errors.WithMessagef(err, "failed sending on session [%s] to [%s]", s.id, s.party)
	}
	return nil
}

func (s *session) Receive() <-chan *view.Message {
	return s.mailbox
}

func (s *session) Close() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.closed = true
	s.lock.Unlock()
	s.hub.remove(s.id)
}

func (s *session) enqueue(ctx context.Context, msg *view.Message) error {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.closed {
		logger.Debugf("[%s] dropping message for closed session [%s]", s.hub.me, s.id)
		return nil
	}
	select {
	case s.mailbox <- msg:
		return nil
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "failed delivering to session [%s]", s.id)
	}
}
