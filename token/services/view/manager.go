/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package view

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/anixon604/bootcamp-cordapp/token/services/logging"
	"github.com/hashicorp/go-uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

var logger = logging.MustGetLogger("token-sdk.view")

// SessionFactory opens initiator sessions
type SessionFactory interface {
	NewSession(caller string, contextID string, party Identity) (Session, error)
}

// ResultListener is notified when a responder terminates
type ResultListener interface {
	OnResponderResult(protocol string, session SessionInfo, result interface{}, err error)
}

// Manager runs initiator views and dispatches incoming sessions to the registered responders
type Manager struct {
	me       Identity
	sessions SessionFactory

	lock       sync.RWMutex
	responders map[string]View
	listeners  []ResultListener

	wg  sync.WaitGroup
	ctx context.Context
}

// NewManager returns a manager for the passed identity.
// The passed context bounds every responder execution.
func NewManager(ctx context.Context, me Identity, sessions SessionFactory) *Manager {
	return &Manager{
		me:         me,
		sessions:   sessions,
		responders: map[string]View{},
		ctx:        ctx,
	}
}

func (m *Manager) Me() Identity {
	return m.me
}

// RegisterResponder binds the responder to sessions opened by initiatedBy.
// initiatedBy is either a View or a protocol identifier.
func (m *Manager) RegisterResponder(responder View, initiatedBy interface{}) error {
	var protocol string
	switch i := initiatedBy.(type) {
	case string:
		protocol = i
	case View:
		protocol = GetIdentifier(i)
	default:
		return errors.Errorf("initiatedBy must be a view or a string, got [%T]", initiatedBy)
	}
	if len(protocol) == 0 {
		return errors.New("empty protocol identifier")
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if _, ok := m.responders[protocol]; ok {
		return errors.Errorf("responder already registered for [%s]", protocol)
	}
	m.responders[protocol] = responder
	logger.Debugf("registered responder [%s] for [%s]", GetIdentifier(responder), protocol)
	return nil
}

func (m *Manager) AddListener(l ResultListener) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.listeners = append(m.listeners, l)
}

// InitiateView runs the passed view in the calling goroutine and returns its result.
// Sessions opened by the view are closed when it returns.
func (m *Manager) InitiateView(ctx context.Context, v View) (interface{}, error) {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, errors.Wrap(err, "failed generating context id")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	vc := &viewContext{
		ctx:       ctx,
		id:        id,
		me:        m.me,
		initiator: v,
		factory:   m.sessions,
		sessions:  map[string]Session{},
	}
	defer vc.closeAll()

	span := trace.SpanFromContext(ctx)
	span.AddEvent("start_view")
	if logger.IsEnabledFor(zapcore.DebugLevel) {
		logger.Debugf("[%s] initiating view [%s]", id, GetIdentifier(v))
	}
	res, err := m.call(vc, v)
	span.AddEvent("end_view")
	return res, err
}

// HandleSession starts the responder registered for the caller of the passed session.
// It returns once the responder is running.
func (m *Manager) HandleSession(session Session, first *Message) {
	m.lock.RLock()
	responder, ok := m.responders[first.Caller]
	m.lock.RUnlock()
	if !ok {
		logger.Warnf("no responder registered for [%s], refusing session [%s] from [%s]", first.Caller, first.SessionID, first.FromEndpoint)
		if err := session.SendError([]byte("no responder for " + first.Caller)); err != nil {
			logger.Debugf("failed notifying [%s]: %s", first.FromEndpoint, err)
		}
		session.Close()
		return
	}

	ctx, cancel := context.WithCancel(m.ctx)
	vc := &viewContext{
		ctx:      ctx,
		id:       first.ContextID,
		me:       m.me,
		factory:  m.sessions,
		session:  session,
		sessions: map[string]Session{},
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer session.Close()
		defer vc.closeAll()
		res, err := m.call(vc, responder)
		if err != nil {
			logger.Errorf("responder [%s] on session [%s] failed: %s", first.Caller, first.SessionID, err)
		}
		m.notify(first.Caller, session.Info(), res, err)
	}()
}

// Wait blocks until all running responders terminate
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) call(vc *viewContext, v View) (res interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("view [%s] panicked: %v\n%s", GetIdentifier(v), r, debug.Stack())
			err = errors.Errorf("view panicked: %v", r)
		}
	}()
	return v.Call(vc)
}

func (m *Manager) notify(protocol string, info SessionInfo, res interface{}, err error) {
	m.lock.RLock()
	listeners := append([]ResultListener{}, m.listeners...)
	m.lock.RUnlock()
	for _, l := range listeners {
		l.OnResponderResult(protocol, info, res, err)
	}
}

type viewContext struct {
	ctx       context.Context
	id        string
	me        Identity
	initiator View
	factory   SessionFactory
	session   Session

	lock     sync.Mutex
	sessions map[string]Session
}

func (c *viewContext) Context() context.Context { return c.ctx }

func (c *viewContext) ID() string { return c.id }

func (c *viewContext) Me() Identity { return c.me }

func (c *viewContext) Initiator() View { return c.initiator }

func (c *viewContext) Session() Session { return c.session }

func (c *viewContext) GetSession(caller View, party Identity) (Session, error) {
	if party.IsNone() {
		return nil, errors.New("no party specified")
	}
	protocol := GetIdentifier(caller)
	key := protocol + "|" + string(party)

	c.lock.Lock()
	defer c.lock.Unlock()
	if s, ok := c.sessions[key]; ok && !s.Info().Closed {
		return s, nil
	}
	// a responder talking back to its initiator reuses the incoming session
	if c.session != nil && c.session.Info().Endpoint == party && caller == nil {
		return c.session, nil
	}
	s, err := c.factory.NewSession(protocol, c.id, party)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed opening session to [%s]", party)
	}
	c.sessions[key] = s
	return s, nil
}

func (c *viewContext) closeAll() {
	c.lock.Lock()
	defer c.lock.Unlock()
	for k, s := range c.sessions {
		s.Close()
		delete(c.sessions, k)
	}
}
