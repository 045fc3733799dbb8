// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gogama/httpexec/auth"
	"github.com/gogama/httpexec/dispatch"
	"github.com/gogama/httpexec/logger"
	"github.com/gogama/httpexec/ratelimit"
	"github.com/gogama/httpexec/request"
	"github.com/gogama/httpexec/resolve"
	"github.com/gogama/httpexec/retry"
	"github.com/gogama/httpexec/transport"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrClosed is the error reported for requests made to a closed Service.
var ErrClosed = errors.New("httpexec: service closed")

// A Service executes requests on a transport session, enforcing per-host
// rate limits, retries with exponential backoff, a redirect ceiling,
// authorization, host resolution overrides and cancellation, and
// notifies consumption observers whenever a transport task ends.
//
// All task handler state transitions, transport callbacks and delayed
// continuations run on one serial scheduling context owned by the
// Service. Requests may be issued from any goroutine.
//
// A Service must be created with NewService and should be closed with
// Close when no longer needed.
type Service struct {
	session        transport.Session
	queue          *dispatch.Queue
	limiter        RateLimiter
	resolver       resolve.Resolver
	authorizer     auth.Authorizer
	classifier     retry.Classifier
	backoffInitial time.Duration
	backoffMax     time.Duration
	defaultRetries int
	hooks          *HookGroup
	log            zerolog.Logger
	now            func() time.Time

	lock      sync.Mutex
	tasks     map[uuid.UUID]*TaskHandler
	handlers  map[uuid.UUID]*TaskHandler
	observers []observerEntry
	nextObs   uint64
	closed    bool
}

// An Option configures a Service.
type Option func(*Service)

// WithSession sets the transport session. The default is a zero value
// transport.HTTPSession.
func WithSession(s transport.Session) Option {
	return func(svc *Service) {
		svc.session = s
	}
}

// WithRateLimiter sets the rate limiter. The default is
// ratelimit.NewDefault().
func WithRateLimiter(l RateLimiter) Option {
	return func(svc *Service) {
		svc.limiter = l
	}
}

// WithResolver sets the host resolution override. The default is none.
func WithResolver(r resolve.Resolver) Option {
	return func(svc *Service) {
		svc.resolver = r
	}
}

// WithAuthorizer sets the authorization step. The default admits every
// request unchanged.
func WithAuthorizer(a auth.Authorizer) Option {
	return func(svc *Service) {
		svc.authorizer = a
	}
}

// WithClassifier sets the retryable classification. The default is
// retry.DefaultClassifier.
func WithClassifier(c retry.Classifier) Option {
	return func(svc *Service) {
		svc.classifier = c
	}
}

// WithBackoff sets the backoff bounds each task handler's generator is
// created with. The defaults are retry.DefaultInitial and
// retry.DefaultMax.
func WithBackoff(initial, max time.Duration) Option {
	return func(svc *Service) {
		svc.backoffInitial = initial
		svc.backoffMax = max
	}
}

// WithDefaultRetries sets the maximum retry count used by the Get, Head,
// Post and PostForm convenience methods.
func WithDefaultRetries(n int) Option {
	return func(svc *Service) {
		svc.defaultRetries = n
	}
}

// WithHooks installs lifecycle hooks.
func WithHooks(g *HookGroup) Option {
	return func(svc *Service) {
		svc.hooks = g
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(svc *Service) {
		svc.log = l
	}
}

// WithClock sets the time source used for response timing and
// Retry-After resolution.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		svc.now = now
	}
}

// NewService constructs a Service and starts its serial scheduling
// context.
func NewService(opts ...Option) *Service {
	s := &Service{
		session:        &transport.HTTPSession{},
		classifier:     retry.DefaultClassifier,
		backoffInitial: retry.DefaultInitial,
		backoffMax:     retry.DefaultMax,
		log:            zerolog.Nop(),
		now:            time.Now,
		tasks:          make(map[uuid.UUID]*TaskHandler),
		handlers:       make(map[uuid.UUID]*TaskHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.limiter == nil {
		s.limiter = ratelimit.NewDefault(ratelimit.WithClock(s.now))
	}
	// Validate bounds now rather than on the first request.
	retry.NewBackoff(s.backoffInitial, s.backoffMax)
	s.queue = dispatch.NewQueue()
	return s
}

// PerformRequest starts executing r and returns a token that cancels it.
//
// The request is copied, its host is rewritten by the resolver, and the
// copy is authorized on a separate goroutine using ctx. On success a
// task handler is started for it; on failure rh receives a failed
// response whose error wraps auth.ErrRejected and no transport task is
// ever created. Context ctx is only used for authorization.
//
// rh receives exactly one terminal notification unless the Service is
// closed before the request started, for example while authorization is
// still running; such a request receives no notification at all.
func (s *Service) PerformRequest(ctx context.Context, rh ResponseHandler, r *request.Request) *CancellationToken {
	if rh == nil {
		panic("httpexec: nil response handler")
	}
	if r == nil {
		panic("httpexec: nil request")
	}
	if ctx == nil {
		panic("httpexec: nil context")
	}

	h := s.newHandler(rh, resolve.Rewrite(s.resolver, r))
	tok := newToken(s, h.id)

	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		resp := request.Empty(h.req)
		resp.Err = ErrClosed
		rh.FailedResponse(resp)
		return tok
	}
	s.handlers[h.id] = h
	s.lock.Unlock()

	if s.authorizer == nil {
		s.queue.Async(func() { s.admit(h, h.req, nil) })
		return tok
	}
	go func() {
		ar, err := s.authorizer.Authorize(ctx, h.req)
		s.queue.Async(func() { s.admit(h, ar, err) })
	}()
	return tok
}

func (s *Service) newHandler(rh ResponseHandler, r *request.Request) *TaskHandler {
	h := &TaskHandler{
		id:         uuid.New(),
		req:        r,
		handler:    rh,
		limiter:    s.limiter,
		backoff:    retry.NewBackoff(s.backoffInitial, s.backoffMax),
		classifier: s.classifier,
		sched:      s.queue,
		spawn:      s.spawn,
		release:    s.release,
		hooks:      s.hooks,
		log:        s.log,
		now:        s.now,
	}
	return h
}

// admit runs on the serial context once authorization finished.
func (s *Service) admit(h *TaskHandler, r *request.Request, err error) {
	if h.terminated() {
		return
	}
	if h.cancelRequested {
		h.abandon()
		return
	}
	if err != nil {
		h.logEvent(s.log.Warn()).Err(err).Msg("authorization failed")
		h.reject(fmt.Errorf("httpexec: authorization failed: %w", err))
		return
	}
	if r != nil {
		h.req = r
	}
	h.task = s.spawn(h, request.Attempt{})
	if e := s.log.Debug(); e.Enabled() {
		h.logEvent(e).Str("url", h.req.URL.String()).
			Dict("headers", logger.Headers(h.req.Header)).
			Msg("request admitted")
	}
	h.start()
}

func (s *Service) spawn(h *TaskHandler, a request.Attempt) transport.Task {
	t := s.session.NewTask(h.req, a, (*sessionDelegate)(s))
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tasks[t.ID()] = h
	return t
}

func (s *Service) release(h *TaskHandler) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.handlers, h.id)
}

func (s *Service) lookup(t transport.Task) *TaskHandler {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.tasks[t.ID()]
}

func (s *Service) cancel(id uuid.UUID) {
	s.lock.Lock()
	h := s.handlers[id]
	s.lock.Unlock()
	if h == nil {
		return
	}
	s.queue.Async(h.requestCancel)
}

// AddObserver registers o to be notified, via sched, whenever any
// transport task ends. If sched is nil, o is notified on the service's
// serial scheduling context. The returned function unregisters o.
func (s *Service) AddObserver(o ConsumptionObserver, sched dispatch.Scheduler) (remove func()) {
	if o == nil {
		panic("httpexec: nil observer")
	}
	if sched == nil {
		sched = s.queue
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.nextObs++
	id := s.nextObs
	s.observers = append(s.observers, observerEntry{id: id, observer: o, sched: sched})
	return func() {
		s.lock.Lock()
		defer s.lock.Unlock()
		for i := range s.observers {
			if s.observers[i].id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Service) notifyObservers() {
	s.lock.Lock()
	observers := s.observers
	s.lock.Unlock()
	for _, e := range observers {
		e.sched.Async(e.observer.EndedRequest)
	}
}

// Live returns the number of requests that have not yet delivered a
// terminal notification.
func (s *Service) Live() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.handlers)
}

// Close tears the Service down. Live transport tasks are cancelled,
// every started handler that has not delivered an outcome receives a
// failed response with no error, and the serial scheduling context
// stops. Requests still being authorized are dropped without
// notification. Requests made after Close fail with ErrClosed.
func (s *Service) Close() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}
	s.closed = true
	live := make([]*TaskHandler, 0, len(s.handlers))
	for _, h := range s.handlers {
		live = append(live, h)
	}
	s.lock.Unlock()

	s.queue.Sync(func() {
		for _, h := range live {
			if h.task != nil {
				h.task.Cancel()
			}
			h.finalize()
		}
	})
	s.queue.Close()

	if ic, ok := s.session.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}

	s.lock.Lock()
	s.tasks = make(map[uuid.UUID]*TaskHandler)
	s.handlers = make(map[uuid.UUID]*TaskHandler)
	s.lock.Unlock()
}

// sessionDelegate routes transport callbacks to task handlers on the
// serial scheduling context.
type sessionDelegate Service

func (d *sessionDelegate) ReceivedResponse(t transport.Task, head *transport.ResponseHead, done func(transport.Disposition)) {
	s := (*Service)(d)
	if !s.queue.TryAsync(func() {
		h := s.lookup(t)
		if h == nil || h.task != t || h.terminated() {
			done(transport.Ignore)
			return
		}
		h.onReceivedResponse(head)
		done(transport.Allow)
	}) {
		done(transport.Ignore)
	}
}

func (d *sessionDelegate) ReceivedData(t transport.Task, b []byte) {
	s := (*Service)(d)
	s.queue.Async(func() {
		if h := s.lookup(t); h != nil && h.task == t {
			h.onReceivedData(b)
		}
	})
}

func (d *sessionDelegate) Redirect(t transport.Task, _ *transport.ResponseHead, next *http.Request, done func(*http.Request)) {
	s := (*Service)(d)
	if !s.queue.TryAsync(func() {
		if h := s.lookup(t); h == nil || !h.mayRedirect() {
			done(nil)
			return
		}
		done(next)
	}) {
		done(nil)
	}
}

func (d *sessionDelegate) WillCache(t transport.Task, proposed *transport.CachedResponse, done func(*transport.CachedResponse)) {
	if t.Request().SkipCache {
		done(nil)
		return
	}
	done(proposed)
}

func (d *sessionDelegate) BecameDownload(transport.Task, transport.Task) {}

func (d *sessionDelegate) Completed(t transport.Task, err error) {
	s := (*Service)(d)
	s.queue.Async(func() {
		s.lock.Lock()
		h := s.tasks[t.ID()]
		delete(s.tasks, t.ID())
		s.lock.Unlock()
		if h != nil && h.task == t {
			h.complete(err)
		}
	})
	s.notifyObservers()
}
