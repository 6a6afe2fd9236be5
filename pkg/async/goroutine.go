// Package async provides safe concurrent execution for fire-and-forget
// background tasks: panic recovery, per-task timeouts, and error logging.
package async

import (
	"context"
	"log"
	"runtime/debug"
	"time"
)

// SafeGo executes a function in a goroutine with context cancellation,
// panic recovery, timeout enforcement, and error logging.
//
// Use this instead of a bare `go func()` for background work hanging off a
// request (usage metering, audit writes) so a panic or slow dependency never
// takes the server down or leaks a goroutine.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		// Detach from the request's cancellation: the task should outlive
		// the response, bounded by its own timeout.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("[SafeGo] PANIC in %s: %v\nStack trace:\n%s",
					taskName, r, string(debug.Stack()))
			}
		}()

		if err := fn(ctx); err != nil {
			log.Printf("[SafeGo] Error in %s: %v", taskName, err)
		}
	}()
}
