package entities

import "fmt"

// ExportStrategy selects how the value produced by evaluating a module
// source becomes a factory.
type ExportStrategy string

const (
	// ExportConstructThenUse evaluates the source to a constructible wrapper
	// and constructs it with no arguments; the result is the factory.
	ExportConstructThenUse ExportStrategy = "construct"

	// ExportDirectValue uses the evaluated value itself as the factory.
	ExportDirectValue ExportStrategy = "direct"
)

// ParseExportStrategy maps a configuration string to an ExportStrategy.
// The empty string selects ExportConstructThenUse.
func ParseExportStrategy(s string) (ExportStrategy, error) {
	switch ExportStrategy(s) {
	case "", ExportConstructThenUse:
		return ExportConstructThenUse, nil
	case ExportDirectValue:
		return ExportDirectValue, nil
	default:
		return "", fmt.Errorf("unknown export strategy %q", s)
	}
}

// Valid reports whether s is a known strategy.
func (s ExportStrategy) Valid() bool {
	return s == ExportConstructThenUse || s == ExportDirectValue
}

// FailureMode decides what a single unreadable or uncompilable module does
// to the enclosing tree load.
type FailureMode string

const (
	// FailAbort aborts the whole load on the first module failure.
	FailAbort FailureMode = "abort"

	// FailSkip records the failure in the LoadReport and continues.
	// Structural errors (invalid or duplicate names) still abort.
	FailSkip FailureMode = "skip"
)

// ParseFailureMode maps a configuration string to a FailureMode.
// The empty string selects FailAbort.
func ParseFailureMode(s string) (FailureMode, error) {
	switch FailureMode(s) {
	case "", FailAbort:
		return FailAbort, nil
	case FailSkip:
		return FailSkip, nil
	default:
		return "", fmt.Errorf("unknown failure mode %q", s)
	}
}

// Valid reports whether m is a known failure mode.
func (m FailureMode) Valid() bool {
	return m == FailAbort || m == FailSkip
}

// ErrorPolicy decides how a Driver reacts to an instance whose update hook
// throws.
type ErrorPolicy string

const (
	// PolicyIsolate records the failure and keeps driving the other instances.
	PolicyIsolate ErrorPolicy = "isolate"

	// PolicyAbort stops the tick at the first failing instance.
	PolicyAbort ErrorPolicy = "abort"
)

// ParseErrorPolicy maps a configuration string to an ErrorPolicy.
// The empty string selects PolicyIsolate.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case "", PolicyIsolate:
		return PolicyIsolate, nil
	case PolicyAbort:
		return PolicyAbort, nil
	default:
		return "", fmt.Errorf("unknown error policy %q", s)
	}
}

// Valid reports whether p is a known policy.
func (p ErrorPolicy) Valid() bool {
	return p == PolicyIsolate || p == PolicyAbort
}
