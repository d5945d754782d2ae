// Package errors provides the error taxonomy of the script host.
// All error types support unwrapping via errors.As() and errors.Is(); each
// typed error also matches its exported sentinel.
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
)

// Sentinel errors for classification with errors.Is.
var (
	ErrEngineInit              = stdErrors.New("engine initialization failed")
	ErrContextEntry            = stdErrors.New("context entry failed")
	ErrScriptSourceRead        = stdErrors.New("script source read failed")
	ErrInvalidNamespaceName    = stdErrors.New("invalid namespace name")
	ErrDuplicateNamespaceEntry = stdErrors.New("duplicate namespace entry")
	ErrScriptCompilation       = stdErrors.New("script compilation failed")
	ErrScriptRuntime           = stdErrors.New("script runtime error")
	ErrNativeTypeMismatch      = stdErrors.New("native type mismatch")
	ErrConfig                  = stdErrors.New("configuration error")
)

// DetailedError is implemented by errors that can convert themselves to a
// structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to a structured ErrorDetail.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrorTypeInternal,
	}
}

// EngineInitError reports that the runtime or its context could not be created.
type EngineInitError struct {
	Err   error
	Stage string // "runtime" or "context"
}

func (e *EngineInitError) Error() string {
	return fmt.Sprintf("engine init failed at %s: %v", e.Stage, e.Err)
}

func (e *EngineInitError) Unwrap() error { return e.Err }

func (e *EngineInitError) Is(target error) bool { return target == ErrEngineInit }

// ToErrorDetail implements DetailedError.
func (e *EngineInitError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeEngine, Code: e.Stage}
}

// ContextEntryError reports that an execution guard could not be obtained
// or was used after release.
type ContextEntryError struct {
	Err    error
	Reason string
}

func (e *ContextEntryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot enter context: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot enter context: %s", e.Reason)
}

func (e *ContextEntryError) Unwrap() error { return e.Err }

func (e *ContextEntryError) Is(target error) bool { return target == ErrContextEntry }

// ToErrorDetail implements DetailedError.
func (e *ContextEntryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeContext, Code: "entry"}
}

// ScriptSourceReadError reports an I/O failure while listing a directory or
// reading a module file.
type ScriptSourceReadError struct {
	Err  error
	Op   string // "read" or "readdir"
	Path string
}

func (e *ScriptSourceReadError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ScriptSourceReadError) Unwrap() error { return e.Err }

func (e *ScriptSourceReadError) Is(target error) bool { return target == ErrScriptSourceRead }

// ToErrorDetail implements DetailedError.
func (e *ScriptSourceReadError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeIO, Code: e.Op, Path: e.Path}
}

// InvalidNamespaceNameError reports a directory or file stem that cannot be
// used as a namespace key.
type InvalidNamespaceNameError struct {
	Path   string
	Name   string
	Reason string
}

func (e *InvalidNamespaceNameError) Error() string {
	return fmt.Sprintf("invalid namespace name %q at %s: %s", e.Name, e.Path, e.Reason)
}

func (e *InvalidNamespaceNameError) Is(target error) bool { return target == ErrInvalidNamespaceName }

// ToErrorDetail implements DetailedError.
func (e *InvalidNamespaceNameError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeNamespace, Code: "invalid_name", Path: e.Path}
}

// DuplicateNamespaceEntryError reports two entries mapping to the same name
// under one parent, or an entry shadowing an existing property.
type DuplicateNamespaceEntryError struct {
	Namespace string
	Name      string
	Path      string
	Existing  string
}

func (e *DuplicateNamespaceEntryError) Error() string {
	ns := e.Namespace
	if ns == "" {
		ns = "<global>"
	}
	if e.Existing != "" {
		return fmt.Sprintf("duplicate entry %q in namespace %s: %s collides with %s", e.Name, ns, e.Path, e.Existing)
	}
	return fmt.Sprintf("duplicate entry %q in namespace %s: %s", e.Name, ns, e.Path)
}

func (e *DuplicateNamespaceEntryError) Is(target error) bool {
	return target == ErrDuplicateNamespaceEntry
}

// ToErrorDetail implements DetailedError.
func (e *DuplicateNamespaceEntryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeNamespace, Code: "duplicate", Path: e.Path}
}

// ScriptCompilationError reports a parse failure, a failure while evaluating
// a module to its factory, or a module whose value is not constructible.
type ScriptCompilationError struct {
	Err     error
	Name    string
	Path    string
	Message string
}

func (e *ScriptCompilationError) Error() string {
	where := e.Name
	if e.Path != "" {
		where = e.Path
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("compile %s: %s: %v", where, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("compile %s: %s", where, e.Message)
	default:
		return fmt.Sprintf("compile %s: %v", where, e.Err)
	}
}

func (e *ScriptCompilationError) Unwrap() error { return e.Err }

func (e *ScriptCompilationError) Is(target error) bool { return target == ErrScriptCompilation }

// ToErrorDetail implements DetailedError.
func (e *ScriptCompilationError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeCompile, Code: "parse", Path: e.Path}
	switch {
	case e.Message != "":
		d.Code = "not_constructible"
	case stdErrors.Is(e.Err, ErrScriptRuntime):
		d.Code = "evaluate"
		d.Wrapped = ToErrorDetail(e.Err)
	}
	return d
}

// ScriptRuntimeError reports an exception thrown by script code during
// construction, evaluation or an update call. Value holds the thrown value's
// string representation.
type ScriptRuntimeError struct {
	Err   error
	Op    string
	Value string
}

func (e *ScriptRuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Value)
}

func (e *ScriptRuntimeError) Unwrap() error { return e.Err }

func (e *ScriptRuntimeError) Is(target error) bool { return target == ErrScriptRuntime }

// ToErrorDetail implements DetailedError.
func (e *ScriptRuntimeError) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeRuntime, Code: e.Op}
	if e.Err != nil {
		d.Wrapped = ToErrorDetail(e.Err)
	}
	return d
}

// NativeTypeMismatchError reports a bridged call whose receiver or argument
// is not backed by the expected native payload.
type NativeTypeMismatchError struct {
	Err      error
	Class    string
	Property string
	Got      string
}

func (e *NativeTypeMismatchError) Error() string {
	msg := fmt.Sprintf("%s.%s: receiver is not a live %s", e.Class, e.Property, e.Class)
	if e.Got != "" {
		msg = fmt.Sprintf("%s (got %s)", msg, e.Got)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *NativeTypeMismatchError) Unwrap() error { return e.Err }

func (e *NativeTypeMismatchError) Is(target error) bool { return target == ErrNativeTypeMismatch }

// ToErrorDetail implements DetailedError.
func (e *NativeTypeMismatchError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeBridge, Code: e.Class, Path: e.Class + "." + e.Property}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfig }

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeConfig, Code: e.Field}
}
