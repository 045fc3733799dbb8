// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

import "github.com/rs/zerolog"

// LogHooks returns a hook group that logs every lifecycle event to l at
// debug level, except RedirectCeiling which is logged at warn level.
func LogHooks(l zerolog.Logger) *HookGroup {
	g := &HookGroup{}
	hook := HookFunc(func(evt Event, h *TaskHandler) {
		e := l.Debug()
		if evt == RedirectCeiling {
			e = l.Warn()
		}
		e = e.Str("event", evt.Name()).
			Str("handler", h.ID().String()).
			Stringer("state", h.State()).
			Int("retry", h.RetryCount()).
			Int("redirects", h.RedirectCount())
		if r := h.Request(); r != nil && r.URL != nil {
			e = e.Str("url", r.URL.String())
			if r.Source != "" {
				e = e.Str("source", r.Source)
			}
		}
		if resp := h.Response(); resp != nil && evt != BeforeRetry {
			e = e.Int("status", resp.StatusCode)
			if resp.Err != nil {
				e = e.AnErr("respErr", resp.Err)
			}
		}
		e.Msg("httpexec lifecycle")
	})
	for _, evt := range Events() {
		g.PushBack(evt, hook)
	}
	return g
}
