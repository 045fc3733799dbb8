// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

import (
	"bytes"
	"net/url"
	"time"

	"github.com/gogama/httpexec/dispatch"
	"github.com/gogama/httpexec/request"
	"github.com/gogama/httpexec/retry"
	"github.com/gogama/httpexec/transport"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MaxRedirects is the maximum number of redirects followed within one
// request sequence. The RedirectCeiling event fires when it is exceeded.
const MaxRedirects = 10

// maxPrealloc bounds the body buffer allocated up front from a declared
// Content-Length.
const maxPrealloc = 8 << 20

// A ResponseHandler receives the progress and the single terminal outcome
// of a request. Its methods are invoked on the service's serial
// scheduling context and must not block.
//
// Exactly one of SuccessfulResponse, FailedResponse and CancelledRequest
// is invoked per request, and never more than once.
type ResponseHandler interface {
	// ReceivedInitialResponse is invoked when response headers arrive.
	// The response has no body and no error yet.
	ReceivedInitialResponse(resp *request.Response)
	// ReceivedDataChunk is invoked for each received byte range when the
	// request was made in chunked mode. The handler owns chunk.
	ReceivedDataChunk(chunk []byte, resp *request.Response)
	// SuccessfulResponse delivers a response that ended without error.
	SuccessfulResponse(resp *request.Response)
	// FailedResponse delivers a response that ended in error after any
	// retries. The response's Err is nil only when the request was torn
	// down after starting but before any outcome was produced.
	FailedResponse(resp *request.Response)
	// CancelledRequest reports that the request was cancelled.
	CancelledRequest(r *request.Request)
}

// A RateLimiter is the per-host admission control consulted by task
// handlers. *ratelimit.Limiter implements RateLimiter.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type RateLimiter interface {
	TimeUntilExecutable(host string) time.Duration
	RecordExecuted(r *request.Request)
	SetRetryAfter(until time.Time, u *url.URL)
}

// A TaskHandler runs the lifecycle of one logical request: the rate
// limiter and backoff gates, the physical attempts, retries, and the
// delivery of exactly one terminal outcome.
//
// TaskHandler is created by Service. All of its state transitions run on
// the service's serial scheduling context, so its accessor methods are
// only meaningful when called from a Hook or a ResponseHandler.
type TaskHandler struct {
	id         uuid.UUID
	req        *request.Request
	handler    ResponseHandler
	limiter    RateLimiter
	backoff    *retry.Backoff
	classifier retry.Classifier
	sched      dispatch.Scheduler
	spawn      func(h *TaskHandler, a request.Attempt) transport.Task
	release    func(h *TaskHandler)
	hooks      *HookGroup
	log        zerolog.Logger
	now        func() time.Time

	task            transport.Task
	pending         dispatch.Timer
	state           State
	started         bool
	cancelRequested bool
	retryCount      int
	waitCount       int
	redirectCount   int
	timeouts        int
	resp            *request.Response
	body            bytes.Buffer
	startTime       time.Time

	succeeded bool
	failed    bool
	cancelled bool
}

// ID returns the handler's identifier, which is stable across retries.
func (h *TaskHandler) ID() uuid.UUID {
	return h.id
}

// Request returns the request being executed, after host resolution and
// authorization.
func (h *TaskHandler) Request() *request.Request {
	return h.req
}

// Response returns the response of the current attempt, or nil if no
// response headers have been received and no outcome was produced.
func (h *TaskHandler) Response() *request.Response {
	return h.resp
}

// State returns the handler's lifecycle state.
func (h *TaskHandler) State() State {
	return h.state
}

// RetryCount returns the number of retries granted so far.
func (h *TaskHandler) RetryCount() int {
	return h.retryCount
}

// RedirectCount returns the number of redirects proposed so far.
func (h *TaskHandler) RedirectCount() int {
	return h.redirectCount
}

// Started reports whether the handler has been started.
func (h *TaskHandler) Started() bool {
	return h.started
}

func (h *TaskHandler) terminated() bool {
	return h.succeeded || h.failed || h.cancelled
}

func (h *TaskHandler) logEvent(e *zerolog.Event) *zerolog.Event {
	return e.Str("handler", h.id.String()).
		Str("host", h.req.Hostname()).
		Int("retry", h.retryCount)
}

// start marks the handler started and enters the rate limiter gate.
// Each retry calls start again.
func (h *TaskHandler) start() {
	if h.terminated() {
		return
	}
	if !h.started {
		h.started = true
		h.hooks.run(BeforeStart, h)
	}
	h.state = WaitingOnRateLimiter
	h.advance()
}

// advance evaluates gates until the handler either suspends or resumes
// its transport task.
func (h *TaskHandler) advance() {
	for {
		switch h.state {
		case WaitingOnRateLimiter:
			if d := h.limiter.TimeUntilExecutable(h.req.Hostname()); d > 0 {
				h.logEvent(h.log.Debug()).Dur("wait", d).Msg("rate limit wait")
				h.hooks.run(RateLimitWait, h)
				h.suspend(d)
				return
			}
			h.state = WaitingOnRetryBackoff
		case WaitingOnRetryBackoff:
			if h.waitCount < h.retryCount {
				if h.waitCount == 0 {
					h.waitCount++
					h.state = WaitingOnRateLimiter
					continue
				}
				d := h.backoff.Next()
				h.waitCount++
				h.logEvent(h.log.Debug()).Dur("wait", d).Msg("backoff wait")
				h.hooks.run(BackoffWait, h)
				h.suspend(d)
				return
			}
			h.execute()
			return
		default:
			return
		}
	}
}

func (h *TaskHandler) suspend(d time.Duration) {
	h.pending = h.sched.After(d, h.resume)
}

// resume re-enters the gate the handler suspended at.
func (h *TaskHandler) resume() {
	h.pending = nil
	if h.terminated() {
		return
	}
	h.advance()
}

func (h *TaskHandler) stopPending() {
	if h.pending != nil {
		h.pending.Stop()
		h.pending = nil
	}
}

func (h *TaskHandler) execute() {
	h.state = Executing
	h.startTime = h.now()
	h.logEvent(h.log.Debug()).Str("task", h.task.ID().String()).Msg("attempt start")
	h.hooks.run(BeforeAttempt, h)
	h.task.Resume()
}

func (h *TaskHandler) onReceivedResponse(head *transport.ResponseHead) {
	if h.terminated() {
		return
	}
	h.resp = request.FromHead(h.req, head.StatusCode, head.Status, head.Header, head.URL, head.ContentLength, h.now())
	h.state = ReceivingResponse
	h.handler.ReceivedInitialResponse(h.resp)
	h.body.Reset()
	if !h.req.Chunks && head.ContentLength > 0 {
		n := head.ContentLength
		if n > maxPrealloc {
			n = maxPrealloc
		}
		h.body.Grow(int(n))
	}
}

func (h *TaskHandler) onReceivedData(b []byte) {
	if h.terminated() {
		return
	}
	if h.resp == nil {
		h.resp = request.Empty(h.req)
	}
	h.state = ReceivingBody
	if h.req.Chunks {
		h.handler.ReceivedDataChunk(b, h.resp)
	} else {
		h.body.Write(b)
	}
}

// mayRedirect counts a proposed redirect and reports whether it may be
// followed.
func (h *TaskHandler) mayRedirect() bool {
	h.redirectCount++
	if h.redirectCount > MaxRedirects {
		h.logEvent(h.log.Warn()).Int("redirects", h.redirectCount).Msg("redirect ceiling reached")
		h.hooks.run(RedirectCeiling, h)
		return false
	}
	return true
}

// complete is the terminal decision point of a physical attempt.
func (h *TaskHandler) complete(err error) {
	if h.terminated() {
		return
	}
	h.stopPending()
	if h.resp == nil {
		h.resp = request.Empty(h.req)
	}

	if transport.IsCancelled(err) {
		h.state = Cancelled
		h.cancelled = true
		h.handler.CancelledRequest(h.req)
		h.end()
		return
	}

	h.limiter.RecordExecuted(h.req)

	var body []byte
	if !h.req.Chunks {
		body = make([]byte, h.body.Len())
		copy(body, h.body.Bytes())
	}
	var elapsed time.Duration
	if !h.startTime.IsZero() {
		elapsed = h.now().Sub(h.startTime)
	}
	h.resp.Finish(err, body, elapsed)

	if !h.resp.RetryAfter.IsZero() {
		h.limiter.SetRetryAfter(h.resp.RetryAfter, h.resp.TargetURL())
	}

	h.hooks.run(AfterAttempt, h)

	if h.resp.Err != nil && h.classifier.Retryable(h.resp) && h.retryCount < h.req.MaxRetries {
		timedOut := h.resp.Timeout()
		if timedOut {
			h.timeouts++
		}
		h.retryCount++
		h.logEvent(h.log.Debug()).Err(h.resp.Err).Msg("retry scheduled")
		h.resp = nil
		h.body.Reset()
		h.hooks.run(BeforeRetry, h)
		h.task = h.spawn(h, request.Attempt{
			Number:           h.retryCount,
			Timeouts:         h.timeouts,
			PreviousTimedOut: timedOut,
		})
		if h.cancelRequested {
			h.task.Cancel()
		}
		h.start()
		return
	}

	if h.resp.Err != nil {
		h.state = Failed
		h.failed = true
		h.handler.FailedResponse(h.resp)
	} else {
		h.state = Succeeded
		h.succeeded = true
		h.handler.SuccessfulResponse(h.resp)
	}
	h.end()
}

// requestCancel cancels the current transport task, or records the
// request so the handler never starts if it has no task yet.
func (h *TaskHandler) requestCancel() {
	if h.terminated() || h.cancelRequested {
		return
	}
	h.cancelRequested = true
	if h.task != nil {
		h.task.Cancel()
	}
}

// reject delivers a failure for a request that never reached the
// transport.
func (h *TaskHandler) reject(err error) {
	if h.terminated() {
		return
	}
	h.resp = request.Empty(h.req)
	h.resp.Err = err
	h.state = Failed
	h.failed = true
	h.handler.FailedResponse(h.resp)
	h.end()
}

// abandon delivers a cancellation for a request that was cancelled
// before it was started.
func (h *TaskHandler) abandon() {
	if h.terminated() {
		return
	}
	h.state = Cancelled
	h.cancelled = true
	h.handler.CancelledRequest(h.req)
	h.end()
}

// finalize issues a failure without error if the handler was started
// but never delivered an outcome. It reports whether it did so.
func (h *TaskHandler) finalize() bool {
	if !h.started || h.terminated() {
		return false
	}
	h.stopPending()
	h.logEvent(h.log.Warn()).Stringer("state", h.state).Msg("finalizing unterminated handler")
	if h.resp == nil {
		h.resp = request.Empty(h.req)
	}
	if !h.req.Chunks && h.resp.Body == nil && h.body.Len() > 0 {
		h.resp.Body = append([]byte(nil), h.body.Bytes()...)
	}
	h.resp.Err = nil
	h.state = Failed
	h.failed = true
	h.handler.FailedResponse(h.resp)
	h.end()
	return true
}

func (h *TaskHandler) end() {
	h.hooks.run(AfterExecutionEnd, h)
	if h.release != nil {
		h.release(h)
	}
}
