package entities

import "strings"

// Error types used in ErrorDetail.Type.
const (
	ErrorTypeEngine    = "engine"
	ErrorTypeContext   = "context"
	ErrorTypeIO        = "io"
	ErrorTypeNamespace = "namespace"
	ErrorTypeCompile   = "compile"
	ErrorTypeRuntime   = "runtime"
	ErrorTypeBridge    = "bridge"
	ErrorTypeConfig    = "config"
	ErrorTypeInternal  = "internal"
)

// ErrorDetail is the serialisable form of a host error, as carried by load
// and tick reports.
type ErrorDetail struct {
	// Wrapped is the detail of the underlying host error, if any.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	// Path locates the offending module, namespace or bridged property.
	Path string `json:"path,omitempty"`

	Message string `json:"message"`

	// Type is one of the ErrorType constants.
	Type string `json:"type"`

	// Code refines Type, e.g. "duplicate" or "not_constructible".
	Code string `json:"code,omitempty"`
}

// Error renders "type[code]: message".
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Type != "" && e.Type != ErrorTypeInternal {
		b.WriteString(e.Type)
		if e.Code != "" {
			b.WriteString("[" + e.Code + "]")
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Cause returns the innermost detail of the chain.
func (e *ErrorDetail) Cause() *ErrorDetail {
	for e != nil && e.Wrapped != nil {
		e = e.Wrapped
	}
	return e
}

// NewErrorDetail creates an ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{Type: errorType, Message: message}
}
