// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogama/httpexec/request"
	"github.com/gogama/httpexec/timeout"
	"github.com/gogama/httpexec/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestService_Do(t *testing.T) {
	t.Run("happy path", testDoHappyPath)
	t.Run("chunks", testDoChunks)
	t.Run("status error", testDoStatusError)
	t.Run("attempt timeout", testDoAttemptTimeout)
	t.Run("context cancel", testDoContextCancel)
	t.Run("retry", testDoRetry)
	t.Run("closed", testDoClosed)
}

func testDoHappyPath(t *testing.T) {
	t.Parallel()
	for _, server := range servers {
		for _, method := range []string{"GET", "POST", "PUT"} {
			server, method := server, method
			t.Run(serverName(server)+"."+method, func(t *testing.T) {
				t.Parallel()
				s := serviceFor(server, nil)
				defer s.Close()

				inst := &serverInstruction{
					StatusCode: 200,
					Header:     map[string]string{"X-Reply": "yes"},
					Body:       []bodyChunk{{Data: []byte("hello, ")}, {Data: []byte("world")}},
				}
				resp, err := s.Do(context.Background(), inst.toRequest(method, server))
				require.NoError(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, 200, resp.StatusCode)
				assert.Equal(t, "yes", resp.Header.Get("X-Reply"))
				assert.Equal(t, "hello, world", string(resp.Body))
				assert.True(t, resp.Successful())
				assert.Greater(t, int64(resp.Duration), int64(0))
				assert.Equal(t, 0, s.Live())
			})
		}
	}
}

func testDoChunks(t *testing.T) {
	t.Parallel()
	s := serviceFor(httpServer, nil)
	defer s.Close()

	inst := &serverInstruction{
		StatusCode: 200,
		Body: []bodyChunk{
			{Data: []byte("ab"), Pause: 10 * time.Millisecond},
			{Data: []byte("cd")},
		},
	}
	r := inst.toRequest("POST", httpServer)
	r.Chunks = true
	h := newChanHandler()
	s.PerformRequest(context.Background(), h, r)

	assert.Equal(t, "success", h.wait(t))
	assert.Equal(t, "abcd", joinChunks(h.rec.chunks))
	assert.Nil(t, h.rec.succeeded[0].Body)

	resp, err := s.Do(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(resp.Body), "Do joins chunks")
}

func testDoStatusError(t *testing.T) {
	t.Parallel()
	s := serviceFor(httpsServer, nil)
	defer s.Close()

	inst := &serverInstruction{StatusCode: 404, Body: []bodyChunk{{Data: []byte("missing")}}}
	r := inst.toRequest("POST", httpsServer)
	r.MaxRetries = 3
	resp, err := s.Do(context.Background(), r)
	require.Error(t, err)
	require.NotNil(t, resp)
	var se *request.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 404, se.StatusCode)
	assert.Equal(t, "missing", string(resp.Body))
}

func testDoAttemptTimeout(t *testing.T) {
	t.Parallel()
	s := serviceFor(httpServer, timeout.Fixed(20*time.Millisecond))
	defer s.Close()

	inst := &serverInstruction{StatusCode: 200, HeaderPause: time.Second}
	r := inst.toRequest("POST", httpServer)
	r.MaxRetries = 1
	resp, err := s.Do(context.Background(), r)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.True(t, resp.Timeout())
	var ue *url.Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "Post", ue.Op)
	assert.True(t, ue.Timeout())
}

func testDoContextCancel(t *testing.T) {
	t.Parallel()
	s := serviceFor(httpServer, nil)
	defer s.Close()

	inst := &serverInstruction{StatusCode: 200, HeaderPause: 2 * time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	resp, err := s.Do(ctx, inst.toRequest("POST", httpServer))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Eventually(t, func() bool { return s.Live() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func testDoRetry(t *testing.T) {
	t.Parallel()
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("third time lucky"))
	}))
	defer server.Close()

	s := serviceFor(server, nil, WithDefaultRetries(2))
	defer s.Close()
	var ended int32
	s.AddObserver(ObserverFunc(func() { atomic.AddInt32(&ended, 1) }), nil)

	resp, err := s.Get(server.URL)
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", string(resp.Body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&ended) == 3 }, time.Second, time.Millisecond)
}

func testDoClosed(t *testing.T) {
	t.Parallel()
	s := serviceFor(httpServer, nil)
	s.Close()
	resp, err := s.Do(context.Background(), (&serverInstruction{StatusCode: 200}).toRequest("POST", httpServer))
	require.NotNil(t, resp)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestHelpers(t *testing.T) {
	var lastMethod, lastContentType, lastBody atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		lastMethod.Store(r.Method)
		lastContentType.Store(r.Header.Get("Content-Type"))
		lastBody.Store(r.PostForm.Encode())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	s := serviceFor(server, nil)
	defer s.Close()

	testCases := []struct {
		name        string
		do          func() (*request.Response, error)
		method      string
		contentType string
		body        string
	}{
		{"Service.Get", func() (*request.Response, error) { return s.Get(server.URL) }, "GET", "", ""},
		{"Service.Head", func() (*request.Response, error) { return s.Head(server.URL) }, "HEAD", "", ""},
		{"Service.Post", func() (*request.Response, error) {
			return s.Post(server.URL, "application/x-www-form-urlencoded", "a=1")
		}, "POST", "application/x-www-form-urlencoded", "a=1"},
		{"Service.PostForm", func() (*request.Response, error) {
			return s.PostForm(server.URL, url.Values{"b": {"2"}})
		}, "POST", "application/x-www-form-urlencoded", "b=2"},
		{"Get", func() (*request.Response, error) { return Get(s, server.URL) }, "GET", "", ""},
		{"Head", func() (*request.Response, error) { return Head(s, server.URL) }, "HEAD", "", ""},
		{"PostForm", func() (*request.Response, error) {
			return PostForm(s, server.URL, url.Values{"c": {"3"}})
		}, "POST", "application/x-www-form-urlencoded", "c=3"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			resp, err := testCase.do()
			require.NoError(t, err)
			assert.Equal(t, http.StatusNoContent, resp.StatusCode)
			assert.Equal(t, testCase.method, lastMethod.Load())
			assert.Equal(t, testCase.contentType, lastContentType.Load())
			assert.Equal(t, testCase.body, lastBody.Load())
		})
	}

	t.Run("bad URL", func(t *testing.T) {
		_, err := Get(s, ":")
		assert.Error(t, err)
		_, err = s.Post(":", "text/plain", nil)
		assert.Error(t, err)
		_, err = Post(s, "http://example.com", "text/plain", 123)
		assert.Error(t, err)
	})
}

func TestService_CloseIdleConnections(t *testing.T) {
	t.Run("unsupported", func(t *testing.T) {
		s := NewService(WithSession(newFakeSession(hang)))
		defer s.Close()
		assert.NotPanics(t, s.CloseIdleConnections)
	})
	t.Run("supported", func(t *testing.T) {
		m := &mockIdleSession{fakeSession: newFakeSession(hang)}
		m.On("CloseIdleConnections").Return().Twice()
		s := NewService(WithSession(m))
		s.CloseIdleConnections()
		s.Close()
		m.AssertExpectations(t)
	})
}

func TestService_ImplementsInterfaces(t *testing.T) {
	var s interface{} = &Service{}
	_, ok := s.(Doer)
	assert.True(t, ok)
	_, ok = s.(Performer)
	assert.True(t, ok)
	_, ok = s.(IdleCloser)
	assert.True(t, ok)
	_, ok = interface{}(&transport.HTTPSession{}).(IdleCloser)
	assert.True(t, ok)
}

func TestSyncHandler(t *testing.T) {
	r := mustRequest(t, "GET", "http://example.com")
	h := &syncHandler{done: make(chan outcome, 1)}
	h.FailedResponse(request.Empty(r))
	out := <-h.done
	assert.ErrorIs(t, out.err, request.ErrNoResponse)

	h.CancelledRequest(r)
	out = <-h.done
	assert.Nil(t, out.resp)
	assert.True(t, transport.IsCancelled(out.err))
	assert.False(t, errors.Is(out.err, request.ErrNoResponse))
}

type mockIdleSession struct {
	mock.Mock
	*fakeSession
}

func (m *mockIdleSession) CloseIdleConnections() {
	m.Called()
}

func joinChunks(chunks []string) string {
	s := ""
	for _, c := range chunks {
		s += c
	}
	return s
}
