// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gogama/httpexec/request"
	"github.com/gogama/httpexec/timeout"

	"github.com/google/uuid"
)

// DefaultChunkSize is the read size HTTPSession uses when ChunkSize is
// zero.
const DefaultChunkSize = 32 * 1024

// An HTTPSession is a Session backed by a net/http client. Its zero
// value is a valid configuration.
//
// The zero value uses http.DefaultClient, timeout.DefaultPolicy and no
// platform cache. HTTPSession is safe for concurrent use by multiple
// goroutines.
//
// Each task runs on its own goroutine and uses a shallow copy of Client
// whose CheckRedirect consults the task's delegate. Redirects are
// therefore decided by the delegate rather than by Client's policy.
type HTTPSession struct {
	// Client sends requests. If nil, http.DefaultClient is used.
	Client *http.Client
	// TimeoutPolicy sets the timeout on each attempt. If nil,
	// timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Cache is the platform cache. If nil, nothing is cached.
	Cache Cache
	// ChunkSize is the size of the reads from the response body. Each
	// read is delivered to the delegate as one range. If zero,
	// DefaultChunkSize is used.
	ChunkSize int
}

// NewTask implements Session.
func (s *HTTPSession) NewTask(r *request.Request, a request.Attempt, d Delegate) Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &httpTask{
		id:     uuid.New(),
		s:      s,
		r:      r,
		a:      a,
		d:      d,
		ctx:    ctx,
		cancel: cancel,
	}
}

// CloseIdleConnections closes idle connections held by the underlying
// client's transport.
func (s *HTTPSession) CloseIdleConnections() {
	s.client().CloseIdleConnections()
}

func (s *HTTPSession) client() *http.Client {
	if s.Client == nil {
		return http.DefaultClient
	}
	return s.Client
}

func (s *HTTPSession) timeoutPolicy() timeout.Policy {
	if s.TimeoutPolicy == nil {
		return timeout.DefaultPolicy
	}
	return s.TimeoutPolicy
}

func (s *HTTPSession) chunkSize() int {
	if s.ChunkSize <= 0 {
		return DefaultChunkSize
	}
	return s.ChunkSize
}

type taskState int

const (
	suspended taskState = iota
	running
	cancelled
	done
)

type httpTask struct {
	id     uuid.UUID
	s      *HTTPSession
	r      *request.Request
	a      request.Attempt
	d      Delegate
	ctx    context.Context
	cancel context.CancelFunc

	lock  sync.Mutex
	state taskState
	once  sync.Once
}

func (t *httpTask) ID() uuid.UUID {
	return t.id
}

func (t *httpTask) Request() *request.Request {
	return t.r
}

func (t *httpTask) Resume() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.state != suspended {
		return
	}
	t.state = running
	go t.run()
}

func (t *httpTask) Cancel() {
	t.lock.Lock()
	prev := t.state
	if prev == cancelled || prev == done {
		t.lock.Unlock()
		return
	}
	t.state = cancelled
	t.lock.Unlock()
	t.cancel()
	if prev == suspended {
		go t.complete(ErrCancelled)
	}
}

func (t *httpTask) complete(err error) {
	t.once.Do(func() {
		t.lock.Lock()
		if t.state == cancelled {
			if err != nil {
				err = ErrCancelled
			}
		} else {
			t.state = done
		}
		t.lock.Unlock()
		t.cancel()
		t.d.Completed(t, err)
	})
}

func (t *httpTask) abandon() {
	t.lock.Lock()
	if t.state == running {
		t.state = cancelled
	}
	t.lock.Unlock()
	t.complete(ErrCancelled)
}

func (t *httpTask) run() {
	ctx, cancel := context.WithTimeout(t.ctx, t.s.timeoutPolicy().Timeout(t.r, t.a))
	defer cancel()

	if t.serveCached(ctx) {
		return
	}

	c := *t.s.client()
	c.CheckRedirect = t.checkRedirect
	resp, err := c.Do(t.r.ToHTTP(ctx))
	if err != nil {
		t.complete(err)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	head := headOf(resp)
	if t.awaitDisposition(ctx, head) == Ignore {
		t.abandon()
		return
	}

	lifetime := time.Duration(0)
	if t.s.Cache != nil && t.r.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
		lifetime = Lifetime(resp.Header)
	}
	body, err := t.readBody(resp.Body, lifetime > 0)
	if err != nil {
		t.complete(err)
		return
	}
	if lifetime > 0 {
		now := time.Now()
		t.offerCache(ctx, &CachedResponse{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header.Clone(),
			Body:       body,
			StoredAt:   now,
			Expires:    now.Add(lifetime),
		})
	}
	t.complete(nil)
}

func (t *httpTask) serveCached(ctx context.Context) bool {
	if t.s.Cache == nil || t.r.SkipCache || t.r.Method != http.MethodGet {
		return false
	}
	entry := t.s.Cache.Get(cacheKey(t.r.Method, t.r.URL.String()), time.Now())
	if entry == nil {
		return false
	}
	head := &ResponseHead{
		StatusCode:    entry.StatusCode,
		Status:        entry.Status,
		Header:        entry.Header.Clone(),
		URL:           t.r.URL,
		ContentLength: int64(len(entry.Body)),
	}
	if t.awaitDisposition(ctx, head) == Ignore {
		t.abandon()
		return true
	}
	if len(entry.Body) > 0 {
		t.d.ReceivedData(t, append([]byte(nil), entry.Body...))
	}
	t.complete(nil)
	return true
}

func (t *httpTask) awaitDisposition(ctx context.Context, head *ResponseHead) Disposition {
	ch := make(chan Disposition, 1)
	t.d.ReceivedResponse(t, head, func(d Disposition) {
		select {
		case ch <- d:
		default:
		}
	})
	select {
	case d := <-ch:
		return d
	case <-ctx.Done():
		return Ignore
	}
}

func (t *httpTask) readBody(body io.Reader, keep bool) ([]byte, error) {
	var kept []byte
	buf := make([]byte, t.s.chunkSize())
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if keep {
				kept = append(kept, chunk...)
			}
			t.d.ReceivedData(t, chunk)
		}
		if err == io.EOF {
			return kept, nil
		} else if err != nil {
			return nil, err
		}
	}
}

func (t *httpTask) offerCache(ctx context.Context, proposed *CachedResponse) {
	ch := make(chan *CachedResponse, 1)
	t.d.WillCache(t, proposed, func(approved *CachedResponse) {
		select {
		case ch <- approved:
		default:
		}
	})
	select {
	case approved := <-ch:
		if approved != nil {
			t.s.Cache.Put(cacheKey(t.r.Method, t.r.URL.String()), approved)
		}
	case <-ctx.Done():
	}
}

func (t *httpTask) checkRedirect(next *http.Request, _ []*http.Request) error {
	var head *ResponseHead
	if next.Response != nil {
		head = headOf(next.Response)
	}
	ch := make(chan *http.Request, 1)
	t.d.Redirect(t, head, next, func(approved *http.Request) {
		select {
		case ch <- approved:
		default:
		}
	})
	select {
	case approved := <-ch:
		if approved == nil {
			return http.ErrUseLastResponse
		}
		return nil
	case <-next.Context().Done():
		return next.Context().Err()
	}
}

func headOf(resp *http.Response) *ResponseHead {
	head := &ResponseHead{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Header:        resp.Header,
		ContentLength: resp.ContentLength,
	}
	if resp.Request != nil {
		head.URL = resp.Request.URL
	}
	return head
}
