// Package lifecycle owns process teardown: an interrupt-aware root
// context and an ordered set of cleanup hooks run before exit.
package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// SignalContext derives a context cancelled on SIGINT or SIGTERM. Every
// long-running operation (generation watches in particular) runs under
// it, so Ctrl-C stops polling promptly instead of waiting out the
// attempt budget.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

type hook struct {
	name string
	fn   func(context.Context) error
}

// Cleanup collects hooks to run before the process exits. Hooks run in
// reverse registration order, mirroring defer, so resources acquired
// later are released first. A failing hook is logged and the rest still
// run.
type Cleanup struct {
	hooks []hook
}

// AddContext registers a hook that takes a context; the context passed
// to Run may carry a deadline. Nil hooks are ignored with a warning.
func (c *Cleanup) AddContext(name string, fn func(context.Context) error) {
	if fn == nil {
		log.Warn().Str("hook", name).Msg("ignoring nil cleanup hook")
		return
	}

	log.Debug().Str("hook", name).Msg("registering cleanup hook")
	c.hooks = append(c.hooks, hook{name: name, fn: fn})
}

// Add registers a hook that needs no context.
func (c *Cleanup) Add(name string, fn func() error) {
	if fn == nil {
		log.Warn().Str("hook", name).Msg("ignoring nil cleanup hook")
		return
	}

	c.AddContext(name, func(context.Context) error { return fn() })
}

// AddClose registers any resource with a Close method.
func (c *Cleanup) AddClose(name string, closer interface{ Close() }) {
	if closer == nil {
		log.Warn().Str("hook", name).Msg("ignoring nil cleanup hook")
		return
	}

	c.AddContext(name, func(context.Context) error { closer.Close(); return nil })
}

// Run executes every registered hook, newest first, continuing past
// failures.
func (c *Cleanup) Run(ctx context.Context) {
	l := log.Ctx(ctx)
	for i := len(c.hooks) - 1; i >= 0; i-- {
		h := c.hooks[i]
		hookLog := l.With().Str("hook", h.name).Logger()

		if err := h.fn(ctx); err != nil {
			hookLog.Warn().Err(err).Msg("cleanup failed")
		} else {
			hookLog.Debug().Msg("cleanup complete")
		}
	}
}
