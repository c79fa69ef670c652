package common

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/ternarybob/arbor"
)

var goroutineCounter atomic.Int64

// GetGoroutineCount returns the number of goroutines spawned via SafeGo
func GetGoroutineCount() int64 {
	return goroutineCounter.Load()
}

// SafeGo runs fn in a goroutine. A panic is logged with its stack and the
// process keeps running. A nil logger falls back to the global one.
func SafeGo(logger arbor.ILogger, name string, fn func()) {
	goroutineCounter.Add(1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				if logger == nil {
					logger = GetLogger()
				}
				logger.Error().
					Str("goroutine", name).
					Str("panic", fmt.Sprintf("%v", r)).
					Str("stack", GetStackTrace()).
					Msg("Recovered from panic in goroutine")
			}
		}()

		fn()
	}()
}

// GetStackTrace returns the current goroutine's stack trace.
func GetStackTrace() string {
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
