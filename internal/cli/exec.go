// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/gogama/httpexec"
	"github.com/gogama/httpexec/config"
	"github.com/gogama/httpexec/logger"
	"github.com/gogama/httpexec/metering"
	"github.com/gogama/httpexec/request"
	"github.com/gogama/httpexec/transport"

	"github.com/spf13/cobra"
)

func execute(cmd *cobra.Command, opts *options, method, url, contentType string, body interface{}) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	var svcOpts []httpexec.Option
	if opts.verbose {
		log := logger.NewTo(cmd.ErrOrStderr(), "debug", true)
		svcOpts = append(svcOpts, httpexec.WithLogger(log), httpexec.WithHooks(httpexec.LogHooks(log)))
	}
	svc := cfg.NewService(svcOpts...)
	defer svc.Close()

	var ended metering.Counter
	svc.AddObserver(&ended, nil)
	m, err := metering.NewMeter(nil)
	if err != nil {
		return err
	}
	svc.AddObserver(m, nil)

	r, err := request.New(method, url, body)
	if err != nil {
		return err
	}
	if contentType != "" && method != "GET" {
		r.Header.Set("Content-Type", contentType)
	}
	r.MaxRetries = cfg.Retry.Max
	if opts.retries >= 0 {
		r.MaxRetries = opts.retries
	}
	r.Chunks = opts.chunks
	r.SkipCache = opts.noCache
	r.Source = "cli"

	var resp *request.Response
	if opts.chunks {
		resp, err = stream(cmd.Context(), svc, r, cmd.OutOrStdout())
	} else {
		resp, err = svc.Do(cmd.Context(), r)
		if resp != nil && err == nil {
			_, err = cmd.OutOrStdout().Write(resp.Body)
		}
	}

	// Close drains the serial queue, so hook output and observer
	// notifications are complete before the summary is written.
	svc.Close()

	if resp != nil && resp.StatusCode != 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", resp.Status, resp.TargetURL())
	}
	if opts.verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "transport tasks ended: %d\n", ended.Count())
	}
	if err != nil && transport.IsCancelled(err) && cmd.Context().Err() != nil {
		return cmd.Context().Err()
	}
	return err
}

// stream executes r in chunked mode, writing each chunk to w as it is
// received.
func stream(ctx context.Context, svc *httpexec.Service, r *request.Request, w io.Writer) (*request.Response, error) {
	h := &streamHandler{w: w, done: make(chan streamResult, 1)}
	tok := svc.PerformRequest(ctx, h, r)
	select {
	case res := <-h.done:
		return res.resp, res.err
	case <-ctx.Done():
		tok.Cancel()
		return nil, ctx.Err()
	}
}

type streamResult struct {
	resp *request.Response
	err  error
}

type streamHandler struct {
	w    io.Writer
	werr error
	done chan streamResult
}

func (h *streamHandler) ReceivedInitialResponse(*request.Response) {}

func (h *streamHandler) ReceivedDataChunk(chunk []byte, _ *request.Response) {
	if h.werr == nil {
		_, h.werr = h.w.Write(chunk)
	}
}

func (h *streamHandler) SuccessfulResponse(resp *request.Response) {
	h.done <- streamResult{resp: resp, err: h.werr}
}

func (h *streamHandler) FailedResponse(resp *request.Response) {
	err := resp.Err
	if err == nil {
		err = request.WrapError(resp.Request, request.ErrNoResponse)
	}
	h.done <- streamResult{resp: resp, err: err}
}

func (h *streamHandler) CancelledRequest(r *request.Request) {
	h.done <- streamResult{err: request.WrapError(r, transport.ErrCancelled)}
}
