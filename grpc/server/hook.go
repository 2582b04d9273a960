package server

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rainbow-me/access-gateway/common/logger"
)

// ShutdownHook represents a function to be executed during graceful shutdown
type ShutdownHook struct {
	Name     string                      // Human-readable name for logging
	Priority int                         // Lower number = higher priority (executed first)
	Timeout  time.Duration               // Maximum time allowed for this hook
	Hook     func(context.Context) error // The actual cleanup function
}

// ShutdownHooks is a sortable slice of shutdown hooks
type ShutdownHooks []ShutdownHook

func (h ShutdownHooks) Len() int           { return len(h) }
func (h ShutdownHooks) Less(i, j int) bool { return h[i].Priority < h[j].Priority }
func (h ShutdownHooks) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

// run executes the hooks by priority. A failing hook is logged and does not stop the others.
func (h ShutdownHooks) run(ctx context.Context, log *logger.Logger) error {
	ordered := make(ShutdownHooks, len(h))
	copy(ordered, h)
	sort.Stable(ordered)

	var errs []error
	for _, hook := range ordered {
		timeout := hook.Timeout
		if timeout <= 0 {
			timeout = DefaultHookTimeout
		}
		hookCtx, cancel := context.WithTimeout(ctx, timeout)
		err := hook.Hook(hookCtx)
		cancel()
		if err != nil {
			log.Error("Shutdown hook failed", logger.String("hook", hook.Name), logger.Error(err))
			errs = append(errs, errors.Wrapf(err, "shutdown hook %s", hook.Name))
			continue
		}
		log.Info("Shutdown hook completed", logger.String("hook", hook.Name))
	}
	return errors.Join(errs...)
}
