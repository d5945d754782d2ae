package hostfuncs

import (
	"log/slog"
	"time"

	"github.com/Tsuguri/embedded-js-tests/domain/ports"
	"github.com/dop251/goja"
)

// DefaultTimeoutSentinel is the value setTimeout returns.
const DefaultTimeoutSentinel = 10

// timerConfig holds configuration for the blocking setTimeout stand-in.
type timerConfig struct {
	sleeper  ports.Sleeper
	logger   *slog.Logger
	sentinel int64
	maxDelay time.Duration
}

func defaultTimerConfig() timerConfig {
	return timerConfig{
		sleeper:  ports.SleeperFunc(time.Sleep),
		logger:   slog.New(slog.DiscardHandler),
		sentinel: DefaultTimeoutSentinel,
	}
}

// blockedKey is the HostContext key under which a handler records how long
// it blocked the script thread.
type blockedKey struct{}

// TimerOption configures TimerBundle.
type TimerOption func(*timerConfig)

// WithSentinel changes the value setTimeout returns.
func WithSentinel(v int64) TimerOption {
	return func(c *timerConfig) {
		c.sentinel = v
	}
}

// WithSleeper replaces time.Sleep.
func WithSleeper(s ports.Sleeper) TimerOption {
	return func(c *timerConfig) {
		c.sleeper = s
	}
}

// WithTimerLogger sets the logger receiving the diagnostic form of the
// extra setTimeout arguments.
func WithTimerLogger(l *slog.Logger) TimerOption {
	return func(c *timerConfig) {
		c.logger = l
	}
}

// WithMaxDelay caps a single blocking delay. Zero means no cap.
func WithMaxDelay(d time.Duration) TimerOption {
	return func(c *timerConfig) {
		c.maxDelay = d
	}
}

// TimerBundle returns a bundle with a blocking setTimeout(delayMs, ...).
//
// The call blocks the script thread for delayMs milliseconds and returns the
// sentinel. Nothing is scheduled and no callback is ever invoked; extra
// arguments are only stringified into a debug log record. Every running
// script on the engine stalls for the whole delay.
func TimerBundle(opts ...TimerOption) HostFuncBundle {
	cfg := defaultTimerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &staticBundle{
		handlers: map[string]Handler{
			"setTimeout": blockingTimeout(cfg),
		},
	}
}

func blockingTimeout(cfg timerConfig) Handler {
	return func(hc HostContext, call goja.FunctionCall) goja.Value {
		d := delayOf(call.Argument(0))
		if cfg.maxDelay > 0 && d > cfg.maxDelay {
			d = cfg.maxDelay
		}

		if len(call.Arguments) > 1 {
			ignored := make([]string, 0, len(call.Arguments)-1)
			for _, a := range call.Arguments[1:] {
				ignored = append(ignored, SafeString(a))
			}
			cfg.logger.DebugContext(hc, "setTimeout blocking", "delay", d, "ignored", ignored)
		}

		cfg.sleeper.Sleep(d)
		hc.SetValue(blockedKey{}, d)
		return hc.Runtime().ToValue(cfg.sentinel)
	}
}

// delayOf converts the delay argument; missing, negative or NaN delays are 0.
func delayOf(v goja.Value) time.Duration {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	ms := v.ToInteger()
	if ms <= 0 {
		return 0
	}
	if ms > int64(time.Duration(1<<62)/time.Millisecond) {
		ms = int64(time.Duration(1<<62) / time.Millisecond)
	}
	return time.Duration(ms) * time.Millisecond
}
