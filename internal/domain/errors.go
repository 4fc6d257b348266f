package domain

import (
	"context"
	"errors"
	"fmt"
)

// Category sentinels. Combine with NewSubSystemError so ErrorCodeOf can
// resolve a subsystem-specific code.
var (
	ErrTimeout       = fmt.Errorf("operation timed out")
	ErrLimitReached  = fmt.Errorf("limit reached")
	ErrInvalidInput  = fmt.Errorf("invalid input")
	ErrProviderError = fmt.Errorf("provider error")
)

// Sentinel errors for the domain layer.
var (
	ErrEmptyInput = fmt.Errorf("input is empty")
	ErrBusy       = fmt.Errorf("a request is already in flight")

	// Search errors.
	ErrSearchUnreachable = fmt.Errorf("search engine unreachable")
	ErrSearchBlocked     = fmt.Errorf("search engine blocked the request")
	ErrSearchFailed      = fmt.Errorf("search failed")
	ErrLayoutNotFound    = fmt.Errorf("extraction layout not found")

	// Model errors.
	ErrNetwork           = fmt.Errorf("network failure")
	ErrRateLimit         = fmt.Errorf("rate limit exceeded")
	ErrAuthInvalid       = fmt.Errorf("authentication failed")
	ErrMalformedResponse = fmt.Errorf("malformed model response")
	ErrCircuitOpen       = fmt.Errorf("circuit breaker open")

	// Configuration errors.
	ErrConfigLoad = fmt.Errorf("failed to load configuration")
	ErrDecryption = fmt.Errorf("decryption failed")
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op        string // operation name (e.g., "llm.chat")
	Err       error  // underlying sentinel or wrapped error
	Detail    string // human-readable detail
	SubSystem string // subsystem identifier (e.g., "search", "browser"); used for ErrorCode dispatch
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// NewSubSystemError creates a DomainError tagged with a subsystem for ErrorCode dispatch.
func NewSubSystemError(subsystem, op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail, SubSystem: subsystem}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// DetailOf returns the human-readable detail of the outermost DomainError in
// err's chain, falling back to err.Error().
func DetailOf(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) && de.Detail != "" {
		return de.Detail
	}
	return err.Error()
}

// ErrorCode is a machine-parseable error category for monitoring and wire responses.
type ErrorCode string

const (
	CodeUnknown           ErrorCode = "UNKNOWN"
	CodeInvalidInput      ErrorCode = "INVALID_INPUT"
	CodeEmptyInput        ErrorCode = "EMPTY_INPUT"
	CodeBusy              ErrorCode = "BUSY"
	CodeTimeout           ErrorCode = "TIMEOUT"
	CodeLimitReached      ErrorCode = "LIMIT_REACHED"
	CodeProviderError     ErrorCode = "PROVIDER_ERROR"
	CodeSearchUnreachable ErrorCode = "SEARCH_UNREACHABLE"
	CodeSearchBlocked     ErrorCode = "SEARCH_BLOCKED"
	CodeSearchFailed      ErrorCode = "SEARCH_FAILED"
	CodeSearchTimeout     ErrorCode = "SEARCH_TIMEOUT"
	CodeLayoutNotFound    ErrorCode = "LAYOUT_NOT_FOUND"
	CodeBrowserTimeout    ErrorCode = "BROWSER_TIMEOUT"
	CodeBrowserPoolFull   ErrorCode = "BROWSER_POOL_EXHAUSTED"
	CodeNetwork           ErrorCode = "NETWORK"
	CodeRateLimit         ErrorCode = "RATE_LIMIT"
	CodeAuthInvalid       ErrorCode = "AUTH_INVALID"
	CodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	CodeCircuitOpen       ErrorCode = "CIRCUIT_OPEN"
	CodeConfigLoad        ErrorCode = "CONFIG_LOAD"
	CodeDecryption        ErrorCode = "DECRYPTION"
)

// errorCodeMap maps sentinel errors to their machine-parseable codes.
var errorCodeMap = map[error]ErrorCode{
	ErrTimeout:           CodeTimeout,
	ErrLimitReached:      CodeLimitReached,
	ErrInvalidInput:      CodeInvalidInput,
	ErrProviderError:     CodeProviderError,
	ErrEmptyInput:        CodeEmptyInput,
	ErrBusy:              CodeBusy,
	ErrSearchUnreachable: CodeSearchUnreachable,
	ErrSearchBlocked:     CodeSearchBlocked,
	ErrSearchFailed:      CodeSearchFailed,
	ErrLayoutNotFound:    CodeLayoutNotFound,
	ErrNetwork:           CodeNetwork,
	ErrRateLimit:         CodeRateLimit,
	ErrAuthInvalid:       CodeAuthInvalid,
	ErrMalformedResponse: CodeMalformedResponse,
	ErrCircuitOpen:       CodeCircuitOpen,
	ErrConfigLoad:        CodeConfigLoad,
	ErrDecryption:        CodeDecryption,
}

// subSystemCodeMap maps (category sentinel, subsystem) pairs to specific ErrorCodes.
var subSystemCodeMap = map[error]map[string]ErrorCode{
	ErrTimeout: {
		"search":  CodeSearchTimeout,
		"browser": CodeBrowserTimeout,
	},
	ErrLimitReached: {
		"browser": CodeBrowserPoolFull,
	},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// Subsystem-specific codes win over category codes. Returns CodeUnknown if
// no matching sentinel is found.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	if code, ok := errorCodeMap[err]; ok {
		return code
	}

	var de *DomainError
	if errors.As(err, &de) {
		if code := de.Code(); code != CodeUnknown {
			return code
		}
	}

	for sentinel, code := range errorCodeMap {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	if e.SubSystem != "" {
		if subsysMap, ok := subSystemCodeMap[e.Err]; ok {
			if code, ok := subsysMap[e.SubSystem]; ok {
				return code
			}
		}
	}
	if code, ok := errorCodeMap[e.Err]; ok {
		return code
	}
	return CodeUnknown
}

// ErrorFromCode is the inverse of ErrorCodeOf for errors that crossed a wire
// boundary. Returns nil for codes it does not know.
func ErrorFromCode(code ErrorCode) error {
	for sentinel, subs := range subSystemCodeMap {
		for subsystem, c := range subs {
			if c == code {
				return NewSubSystemError(subsystem, "remote", sentinel, "")
			}
		}
	}
	for sentinel, c := range errorCodeMap {
		if c == code {
			return sentinel
		}
	}
	return nil
}

// FailureKind classifies why a chat turn failed to produce a model reply.
type FailureKind string

const (
	FailureNetwork     FailureKind = "network"
	FailureAuth        FailureKind = "auth"
	FailureRateLimit   FailureKind = "rate_limit"
	FailureServer      FailureKind = "server"
	FailureMalformed   FailureKind = "malformed"
	FailureCircuitOpen FailureKind = "circuit_open"
	FailureCanceled    FailureKind = "canceled"
	FailureUnknown     FailureKind = "unknown"
)

// ClassifyFailure maps a model-call error onto a FailureKind.
func ClassifyFailure(err error) FailureKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.Is(err, ErrAuthInvalid):
		return FailureAuth
	case errors.Is(err, ErrRateLimit):
		return FailureRateLimit
	case errors.Is(err, ErrMalformedResponse):
		return FailureMalformed
	case errors.Is(err, ErrCircuitOpen):
		return FailureCircuitOpen
	case errors.Is(err, ErrProviderError):
		return FailureServer
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureNetwork
	}
	return FailureUnknown
}
