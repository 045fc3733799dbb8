// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

import (
	"bytes"
	"context"
	"net/url"

	"github.com/gogama/httpexec/request"
	"github.com/gogama/httpexec/transport"
)

// Do executes r and blocks until its terminal outcome.
//
// On success the final response is returned with a nil error. On
// failure the final response is returned together with its error; a
// request torn down by Close before producing an outcome returns
// request.ErrNoResponse. A cancelled request returns a nil response and
// an error satisfying transport.IsCancelled.
//
// If ctx ends first, the request is cancelled and ctx.Err() is
// returned. In chunked mode the received chunks are concatenated into
// the returned response's Body.
func (s *Service) Do(ctx context.Context, r *request.Request) (*request.Response, error) {
	h := &syncHandler{done: make(chan outcome, 1)}
	tok := s.PerformRequest(ctx, h, r)
	select {
	case out := <-h.done:
		return out.resp, out.err
	case <-ctx.Done():
		tok.Cancel()
		return nil, request.WrapError(r, ctx.Err())
	case <-s.queue.Done():
		select {
		case out := <-h.done:
			return out.resp, out.err
		default:
			return nil, request.WrapError(r, ErrClosed)
		}
	}
}

// Get issues a GET to the specified URL, allowing the service's default
// number of retries.
func (s *Service) Get(url string) (*request.Response, error) {
	return s.simple("GET", url, "", nil)
}

// Head issues a HEAD to the specified URL, allowing the service's
// default number of retries.
func (s *Service) Head(url string) (*request.Response, error) {
	return s.simple("HEAD", url, "", nil)
}

// Post issues a POST to the specified URL, allowing the service's
// default number of retries.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.New.
func (s *Service) Post(url, contentType string, body interface{}) (*request.Response, error) {
	return s.simple("POST", url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
func (s *Service) PostForm(url string, data url.Values) (*request.Response, error) {
	return s.Post(url, "application/x-www-form-urlencoded", data.Encode())
}

// CloseIdleConnections invokes the same method on the service's
// transport session, if it has one.
func (s *Service) CloseIdleConnections() {
	if ic, ok := s.session.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (s *Service) simple(method, url, contentType string, body interface{}) (*request.Response, error) {
	r, err := request.New(method, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	r.MaxRetries = s.defaultRetries
	return s.Do(context.Background(), r)
}

type outcome struct {
	resp *request.Response
	err  error
}

// syncHandler adapts the asynchronous ResponseHandler contract to Do.
type syncHandler struct {
	chunks bytes.Buffer
	done   chan outcome
}

func (h *syncHandler) ReceivedInitialResponse(*request.Response) {}

func (h *syncHandler) ReceivedDataChunk(chunk []byte, _ *request.Response) {
	h.chunks.Write(chunk)
}

func (h *syncHandler) SuccessfulResponse(resp *request.Response) {
	h.attachChunks(resp)
	h.done <- outcome{resp: resp}
}

func (h *syncHandler) FailedResponse(resp *request.Response) {
	h.attachChunks(resp)
	err := resp.Err
	if err == nil {
		err = request.WrapError(resp.Request, request.ErrNoResponse)
	}
	h.done <- outcome{resp: resp, err: err}
}

func (h *syncHandler) CancelledRequest(r *request.Request) {
	h.done <- outcome{err: request.WrapError(r, transport.ErrCancelled)}
}

func (h *syncHandler) attachChunks(resp *request.Response) {
	if resp.Request != nil && resp.Request.Chunks && h.chunks.Len() > 0 {
		resp.Body = h.chunks.Bytes()
	}
}
