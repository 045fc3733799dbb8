// Copyright 2021 The httpexec Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpexec

// A HookGroup is a group of hook chains, one per Event, which can be
// installed in a Service.
type HookGroup struct {
	hooks [][]Hook
}

// PushBack adds a hook to the back of the hook chain for a specific
// event type.
func (g *HookGroup) PushBack(evt Event, h Hook) {
	if h == nil {
		panic("httpexec: nil hook")
	}

	if g.hooks == nil {
		g.hooks = make([][]Hook, numEvents)
	}

	g.hooks[evt] = append(g.hooks[evt], h)
}

func (g *HookGroup) run(evt Event, h *TaskHandler) {
	if g == nil {
		return
	}
	i := int(evt)
	if i < len(g.hooks) {
		for _, hook := range g.hooks[i] {
			hook.Handle(evt, h)
		}
	}
}

// A Hook handles the occurrence of an event in a task handler's
// lifecycle. Hooks run on the service's serial scheduling context, so
// they may read the handler's state but must not block.
type Hook interface {
	Handle(Event, *TaskHandler)
}

// The HookFunc type is an adapter to allow the use of ordinary
// functions as hooks.
type HookFunc func(Event, *TaskHandler)

// Handle calls f(evt, h).
func (f HookFunc) Handle(evt Event, h *TaskHandler) {
	f(evt, h)
}
