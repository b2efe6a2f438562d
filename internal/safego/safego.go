// Package safego launches fire-and-forget goroutines that survive panics.
package safego

import (
	"log/slog"
	"runtime/debug"
)

// Go runs fn in a new goroutine, naming it for diagnostics. A panic inside fn
// is recovered and logged with its stack instead of killing the process. Use
// this for background work whose silent death would otherwise go unnoticed,
// such as audit shipping and periodic collectors.
func Go(task string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine",
					"task", task,
					"panic", r,
					"stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
