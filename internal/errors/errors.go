// Package errors provides structured error types for the idebridge server.
// These errors include helpful hints and suggestions that guide the LLM
// to correct course when something goes wrong.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a category of error for programmatic handling.
// The values double as the wire-level `error` field of tool results, so
// they use the taxonomy's spelled-out names rather than constant-style
// identifiers.
type ErrorCode string

const (
	// Validation errors
	CodeValidation       ErrorCode = "ValidationError"
	CodeMissingParameter ErrorCode = "MissingRequiredParameter"
	CodeInvalidParameter ErrorCode = "InvalidParameter"
	CodeInvalidJSON      ErrorCode = "InvalidJSON"

	// Symbol resolution errors
	CodeSymbolNotFound  ErrorCode = "SymbolNotFound"
	CodeAmbiguousSymbol ErrorCode = "AmbiguousSymbol"

	// Host errors
	CodeNotReady        ErrorCode = "NotReady"
	CodeHostUnavailable ErrorCode = "HostUnavailable"
	CodeHostError       ErrorCode = "HostError"

	// Session state-machine errors
	CodeNoActiveSession      ErrorCode = "NoActiveSession"
	CodeSessionAlreadyActive ErrorCode = "SessionAlreadyActive"
	CodeNotPaused            ErrorCode = "NotPaused"
	CodeInvalidThreadID      ErrorCode = "InvalidThreadId"
	CodeInvalidFrameID       ErrorCode = "InvalidFrameId"

	// Permission errors
	CodePermissionDenied ErrorCode = "PermissionDenied"

	// Configuration errors
	CodeConfigNotFound ErrorCode = "ConfigurationNotFound"
	CodeConfigInvalid  ErrorCode = "ConfigurationInvalid"

	// Internal errors
	CodeInternal ErrorCode = "InternalError"
)

// BridgeError is a structured error type that includes helpful information
// for the LLM to understand what went wrong and how to fix it.
type BridgeError struct {
	// Code is a machine-readable error category
	Code ErrorCode `json:"code"`

	// Message is a human/LLM-readable description of what went wrong
	Message string `json:"message"`

	// Hint provides actionable guidance on how to fix the error
	Hint string `json:"hint,omitempty"`

	// Details contains additional context (e.g., the invalid value, expected format)
	Details map[string]interface{} `json:"details,omitempty"`

	// Cause is the underlying error, if any
	Cause error `json:"-"`
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Hint != "" {
		sb.WriteString(" | Hint: ")
		sb.WriteString(e.Hint)
	}

	return sb.String()
}

// Unwrap returns the underlying error for error chaining
func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *BridgeError) WithDetails(key string, value interface{}) *BridgeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *BridgeError) WithCause(err error) *BridgeError {
	e.Cause = err
	return e
}

// --- Validation Errors ---

// Validation creates a generic validation error for conflicting or malformed
// arguments. Validation errors are produced before any host interaction.
func Validation(message, hint string) *BridgeError {
	return &BridgeError{
		Code:    CodeValidation,
		Message: message,
		Hint:    hint,
	}
}

// MissingParameter creates an error for missing required parameters
func MissingParameter(paramName, description string) *BridgeError {
	return &BridgeError{
		Code:    CodeMissingParameter,
		Message: fmt.Sprintf("required parameter '%s' is missing", paramName),
		Hint:    description,
		Details: map[string]interface{}{
			"parameter": paramName,
		},
	}
}

// InvalidParameter creates an error for invalid parameter values
func InvalidParameter(paramName string, value interface{}, expected string) *BridgeError {
	return &BridgeError{
		Code:    CodeInvalidParameter,
		Message: fmt.Sprintf("invalid value for parameter '%s': %v", paramName, value),
		Hint:    fmt.Sprintf("Expected: %s", expected),
		Details: map[string]interface{}{
			"parameter": paramName,
			"value":     value,
			"expected":  expected,
		},
	}
}

// InvalidJSON creates an error for JSON parsing failures
func InvalidJSON(paramName string, err error, example string) *BridgeError {
	return &BridgeError{
		Code:    CodeInvalidJSON,
		Message: fmt.Sprintf("invalid JSON in parameter '%s': %v", paramName, err),
		Hint:    fmt.Sprintf("Provide valid JSON. Example: %s", example),
		Cause:   err,
		Details: map[string]interface{}{
			"parameter": paramName,
			"example":   example,
		},
	}
}

// --- Symbol Resolution Errors ---

// SymbolNotFound creates an error for names that match nothing in the
// workspace, optionally carrying nearest-name suggestions.
func SymbolNotFound(name string, suggestions []string) *BridgeError {
	hint := "Check the spelling, or use symbolSearch to browse matching symbols."
	if len(suggestions) > 0 {
		hint = fmt.Sprintf("Did you mean: %s?", strings.Join(suggestions, ", "))
	}

	e := &BridgeError{
		Code:    CodeSymbolNotFound,
		Message: fmt.Sprintf("no symbol found matching '%s'", name),
		Hint:    hint,
		Details: map[string]interface{}{
			"name": name,
		},
	}
	if len(suggestions) > 0 {
		e.Details["suggestions"] = suggestions
	}
	return e
}

// AmbiguousSymbol creates an error for names that match several symbols at
// the same tier. The caller attaches the candidate list to the response; no
// state has been mutated.
func AmbiguousSymbol(name string, count int) *BridgeError {
	return &BridgeError{
		Code:    CodeAmbiguousSymbol,
		Message: fmt.Sprintf("'%s' matches %d symbols", name, count),
		Hint:    "Qualify the name with its container (e.g. 'ClassName.method') or pass a uri to narrow the search.",
		Details: map[string]interface{}{
			"name":           name,
			"candidateCount": count,
		},
	}
}

// --- Host Errors ---

// NotReady creates an error for host indices that are still warming up.
// Distinct from an empty result: the caller should retry.
func NotReady(operation string, attempts int) *BridgeError {
	return &BridgeError{
		Code:    CodeNotReady,
		Message: fmt.Sprintf("host is still indexing; %s returned no data after %d attempts", operation, attempts),
		Hint:    "The workspace index is warming up. Retry in a few seconds.",
		Details: map[string]interface{}{
			"operation": operation,
			"attempts":  attempts,
		},
	}
}

// HostUnavailable creates an error for transport failures reaching the host
func HostUnavailable(endpoint string, err error) *BridgeError {
	return &BridgeError{
		Code:    CodeHostUnavailable,
		Message: fmt.Sprintf("cannot reach the editor host at %s: %v", endpoint, err),
		Hint:    "Ensure the editor is running with the bridge extension active, and that the port matches IDEBRIDGE_HOST_PORT.",
		Cause:   err,
		Details: map[string]interface{}{
			"endpoint": endpoint,
		},
	}
}

// HostRequestFailed wraps a failure reported by the host itself. The host's
// message is passed through verbatim; the code is the classification tag.
func HostRequestFailed(operation, message string) *BridgeError {
	return &BridgeError{
		Code:    CodeHostError,
		Message: message,
		Hint:    fmt.Sprintf("The host rejected '%s'. The message above is the host's own diagnostic.", operation),
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// --- Session State-Machine Errors ---

// NoActiveSession creates an error for session operations issued while no
// debug session is active.
func NoActiveSession(operation string) *BridgeError {
	return &BridgeError{
		Code:    CodeNoActiveSession,
		Message: fmt.Sprintf("cannot %s: no active debug session", operation),
		Hint:    "Start a session with startSession first. Use listConfigurations to see the available launch configurations.",
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// SessionAlreadyActive creates an error for startSession issued while a
// session exists in any state.
func SessionAlreadyActive(state string) *BridgeError {
	return &BridgeError{
		Code:    CodeSessionAlreadyActive,
		Message: fmt.Sprintf("a debug session is already active (state: %s)", state),
		Hint:    "Stop the current session with stopSession before starting a new one, or use restartSession.",
		Details: map[string]interface{}{
			"state": state,
		},
	}
}

// NotPaused creates an error for inspection operations issued while the
// program is not stopped at a breakpoint or pause point.
func NotPaused(operation, state string) *BridgeError {
	return &BridgeError{
		Code:    CodeNotPaused,
		Message: fmt.Sprintf("cannot %s while the session is %s", operation, state),
		Hint:    "The program must be paused. Set a breakpoint and wait for it to hit, or call pauseExecution.",
		Details: map[string]interface{}{
			"operation": operation,
			"state":     state,
		},
	}
}

// InvalidThreadID creates an error for stale or unknown thread IDs.
// Threads from before the last continue/step are stale and never silently
// substituted.
func InvalidThreadID(threadID int, known []int) *BridgeError {
	return &BridgeError{
		Code:    CodeInvalidThreadID,
		Message: fmt.Sprintf("thread %d does not exist in the current session", threadID),
		Hint:    "Omit threadId to use the most recently paused thread, or call getCallStack to list live threads.",
		Details: map[string]interface{}{
			"threadId":     threadID,
			"knownThreads": known,
		},
	}
}

// InvalidFrameID creates an error for stale or unknown frame IDs
func InvalidFrameID(frameID int) *BridgeError {
	return &BridgeError{
		Code:    CodeInvalidFrameID,
		Message: fmt.Sprintf("frame %d does not exist in the current pause state", frameID),
		Hint:    "Frame IDs become stale after every continue or step. Call getCallStack to get fresh frame IDs.",
		Details: map[string]interface{}{
			"frameId": frameID,
		},
	}
}

// --- Permission Errors ---

// PermissionDenied creates an error for operations blocked by the server mode
func PermissionDenied(operation, mode string) *BridgeError {
	return &BridgeError{
		Code:    CodePermissionDenied,
		Message: fmt.Sprintf("%s is not allowed in current server mode", operation),
		Hint:    fmt.Sprintf("The server is running in '%s' mode. Ask the administrator to switch to 'full' mode to enable session and breakpoint mutation.", mode),
		Details: map[string]interface{}{
			"operation": operation,
			"mode":      mode,
		},
	}
}

// --- Configuration Errors ---

// ConfigNotFound creates an error for missing launch.json configurations
func ConfigNotFound(configName string, availableConfigs []string) *BridgeError {
	var hint string
	if len(availableConfigs) > 0 {
		hint = fmt.Sprintf("Available configurations: %s", strings.Join(availableConfigs, ", "))
	} else {
		hint = "No configurations found in launch.json. Create a launch configuration first."
	}

	return &BridgeError{
		Code:    CodeConfigNotFound,
		Message: fmt.Sprintf("configuration '%s' not found in launch.json", configName),
		Hint:    hint,
		Details: map[string]interface{}{
			"configName":       configName,
			"availableConfigs": availableConfigs,
		},
	}
}

// ConfigInvalid creates an error for invalid configuration
func ConfigInvalid(configName, reason string) *BridgeError {
	return &BridgeError{
		Code:    CodeConfigInvalid,
		Message: fmt.Sprintf("configuration '%s' is invalid: %s", configName, reason),
		Hint:    "Check the launch.json file for syntax errors and ensure all required fields are present.",
		Details: map[string]interface{}{
			"configName": configName,
			"reason":     reason,
		},
	}
}

// --- Helpers ---

// Wrap wraps a generic error with context
func Wrap(code ErrorCode, message string, hint string, err error) *BridgeError {
	return &BridgeError{
		Code:    code,
		Message: message,
		Hint:    hint,
		Cause:   err,
	}
}

// FromError creates a BridgeError from a generic error, attempting to
// preserve any existing structure
func FromError(err error) *BridgeError {
	var be *BridgeError
	if stderrors.As(err, &be) {
		return be
	}
	return &BridgeError{
		Code:    CodeInternal,
		Message: err.Error(),
		Hint:    "An unexpected error occurred. Please check the error message for details.",
		Cause:   err,
	}
}

// CodeOf extracts the ErrorCode from an error, or CodeInternal for
// unstructured errors.
func CodeOf(err error) ErrorCode {
	var be *BridgeError
	if stderrors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}

// IsNotReady reports whether err is the cold-start "index still warming"
// signal. Callers use this to distinguish a warming index from a genuinely
// empty result.
func IsNotReady(err error) bool {
	return CodeOf(err) == CodeNotReady
}
