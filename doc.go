// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httpexec executes many concurrent HTTP requests through a single
entry point that centrally enforces per-host rate limits, retries with
exponential backoff, a redirect ceiling, cancellation, authorization,
host resolution overrides and usage metering.

Create a Service and issue requests to it. The simplest calls block:

	svc := httpexec.NewService()
	defer svc.Close()
	resp, err := svc.Get("https://www.example.com")
	...
	resp, err := svc.Post("https://www.example.com/upload",
		"application/json", &buf)

For full control, build a request and perform it asynchronously. The
response handler receives exactly one of SuccessfulResponse,
FailedResponse and CancelledRequest:

	r, _ := request.New("GET", "https://www.example.com/feed", nil)
	r.MaxRetries = 3
	r.Chunks = true
	tok := svc.PerformRequest(ctx, handler, r)
	...
	tok.Cancel()

Each request is driven by a TaskHandler. Before every physical attempt
it passes the rate limiter gate, and on retries also the backoff gate:
the first retry runs as soon as the rate limiter allows, later retries
wait 1s, 2s, 4s and so on, capped at 60s. Only failures classified as
retryable by the service's retry.Classifier are retried, and the caller
sees only the final outcome.

The transport is pluggable through package transport. The default is a
net/http based session with per-attempt timeouts from package timeout:

	svc := httpexec.NewService(
		httpexec.WithSession(&transport.HTTPSession{
			Client:        &http.Client{Transport: tr},
			TimeoutPolicy: timeout.Adaptive(time.Second, 5*time.Second),
			Cache:         &transport.MemoryCache{},
		}),
		httpexec.WithResolver(resolve.NewStatic(overrides)),
		httpexec.WithAuthorizer(auth.Bearer(tokens)),
	)

To observe the lifecycle of every request, install hooks:

	hooks := &httpexec.HookGroup{}
	hooks.PushBack(httpexec.BeforeAttempt, httpexec.HookFunc(
		func(_ httpexec.Event, h *httpexec.TaskHandler) {
			log.Printf("attempt %d to %s", h.RetryCount(), h.Request().URL)
		}))
	svc := httpexec.NewService(httpexec.WithHooks(hooks))

To meter usage, register a consumption observer; package metering
provides OpenTelemetry and in-process implementations.

Package config builds a Service from defaults, a YAML file and
HTTPEXEC_ environment variables:

	cfg, err := config.Load("httpexec.yaml")
	if err != nil {
		...
	}
	svc := cfg.NewService()
*/
package httpexec
