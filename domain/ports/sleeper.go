package ports

import "time"

// Sleeper blocks the calling goroutine. The blocking setTimeout global uses it
// so tests can observe requested delays without waiting.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(time.Duration)

// Sleep calls f(d).
func (f SleeperFunc) Sleep(d time.Duration) { f(d) }
