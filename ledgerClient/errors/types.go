package errors

import (
	"fmt"
)

// ErrorCode represents different categories of errors
type ErrorCode string

const (
	// ErrCodeNotConnected indicates an operation was attempted without a signer
	ErrCodeNotConnected ErrorCode = "NOT_CONNECTED"

	// ErrCodeUserRejected indicates the signer declined to sign
	ErrCodeUserRejected ErrorCode = "USER_REJECTED"

	// ErrCodeNetwork indicates the endpoint could not be reached or answered garbage
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeDecode indicates account data that does not match the expected layout
	ErrCodeDecode ErrorCode = "DECODE"

	// ErrCodeRejectedByLedger indicates the ledger refused the transaction
	ErrCodeRejectedByLedger ErrorCode = "REJECTED_BY_LEDGER"

	// ErrCodeTimeout indicates confirmation did not arrive in time; the outcome is unknown
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeValidation indicates input validation errors
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodePrecondition indicates the ledger state does not allow the operation
	ErrCodePrecondition ErrorCode = "PRECONDITION"

	// ErrCodeBusy indicates another mutation on the same address is in flight
	ErrCodeBusy ErrorCode = "BUSY"

	// ErrCodeDatabase indicates database operation errors
	ErrCodeDatabase ErrorCode = "DATABASE"

	// ErrCodeConfig indicates configuration errors
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeInternal indicates internal system errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Severity represents the severity level of an error
type Severity string

const (
	// SeverityCritical indicates critical errors that require immediate attention
	SeverityCritical Severity = "CRITICAL"

	// SeverityHigh indicates high priority errors
	SeverityHigh Severity = "HIGH"

	// SeverityMedium indicates medium priority errors
	SeverityMedium Severity = "MEDIUM"

	// SeverityLow indicates low priority errors
	SeverityLow Severity = "LOW"

	// SeverityInfo indicates informational errors
	SeverityInfo Severity = "INFO"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrNotConnected     = &LedgerError{Code: ErrCodeNotConnected}
	ErrUserRejected     = &LedgerError{Code: ErrCodeUserRejected}
	ErrNetwork          = &LedgerError{Code: ErrCodeNetwork}
	ErrDecode           = &LedgerError{Code: ErrCodeDecode}
	ErrRejectedByLedger = &LedgerError{Code: ErrCodeRejectedByLedger}
	ErrTimedOut         = &LedgerError{Code: ErrCodeTimeout}
	ErrValidation       = &LedgerError{Code: ErrCodeValidation}
	ErrPrecondition     = &LedgerError{Code: ErrCodePrecondition}
	ErrBusy             = &LedgerError{Code: ErrCodeBusy}
	ErrDatabase         = &LedgerError{Code: ErrCodeDatabase}
	ErrConfig           = &LedgerError{Code: ErrCodeConfig}
	ErrInternal         = &LedgerError{Code: ErrCodeInternal}
)

// LedgerError is the classified error returned by every client operation.
type LedgerError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Operation string                 `json:"operation,omitempty"`
	Severity  Severity               `json:"severity"`
	Reason    string                 `json:"reason,omitempty"`    // ledger supplied reason, verbatim
	Signature string                 `json:"signature,omitempty"` // set once a transaction was dispatched
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
}

// NewLedgerError creates a new LedgerError
func NewLedgerError(code ErrorCode, operation, message string, cause error) *LedgerError {
	return &LedgerError{
		Code:      code,
		Message:   message,
		Operation: operation,
		Severity:  determineSeverity(code),
		Cause:     cause,
		Context:   make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *LedgerError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	}
	if e.Cause != nil && e.Reason == "" {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Operation != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Operation, e.Code, e.Severity, msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, msg)
}

// Unwrap returns the underlying cause
func (e *LedgerError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a LedgerError with the same code.
func (e *LedgerError) Is(target error) bool {
	t, ok := target.(*LedgerError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithContext adds context to the error
func (e *LedgerError) WithContext(key string, value interface{}) *LedgerError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity overrides the default severity
func (e *LedgerError) WithSeverity(severity Severity) *LedgerError {
	e.Severity = severity
	return e
}

// WithSignature records the dispatched transaction signature.
func (e *LedgerError) WithSignature(sig string) *LedgerError {
	e.Signature = sig
	return e
}

// WithReason records the ledger supplied reason.
func (e *LedgerError) WithReason(reason string) *LedgerError {
	e.Reason = reason
	return e
}

// IsRetryable reports whether a caller may reasonably try again.
// Nothing in the client retries on its own.
func (e *LedgerError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeNetwork, ErrCodeBusy:
		return true
	case ErrCodeDatabase:
		return e.Severity != SeverityCritical
	default:
		return false
	}
}

// determineSeverity determines the default severity based on error code
func determineSeverity(code ErrorCode) Severity {
	switch code {
	case ErrCodeInternal:
		return SeverityCritical
	case ErrCodeDatabase, ErrCodeDecode:
		return SeverityHigh
	case ErrCodeRejectedByLedger, ErrCodeTimeout, ErrCodeNetwork:
		return SeverityMedium
	case ErrCodeValidation, ErrCodeConfig, ErrCodePrecondition, ErrCodeNotConnected:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// Common error constructors

// NewNotConnectedError creates a not connected error
func NewNotConnectedError(operation string) *LedgerError {
	return NewLedgerError(ErrCodeNotConnected, operation, "no signer connected", nil)
}

// NewUserRejectedError creates a user rejected error
func NewUserRejectedError(operation string, cause error) *LedgerError {
	return NewLedgerError(ErrCodeUserRejected, operation, "signature request rejected", cause)
}

// NewNetworkError creates a network error
func NewNetworkError(operation, message string, cause error) *LedgerError {
	return NewLedgerError(ErrCodeNetwork, operation, message, cause)
}

// NewDecodeError creates a decode error
func NewDecodeError(operation, message string, cause error) *LedgerError {
	return NewLedgerError(ErrCodeDecode, operation, message, cause)
}

// NewRejectedError creates a ledger rejection carrying the reason verbatim
func NewRejectedError(operation, reason string) *LedgerError {
	return NewLedgerError(ErrCodeRejectedByLedger, operation, "transaction rejected by ledger", nil).WithReason(reason)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(operation, message string) *LedgerError {
	return NewLedgerError(ErrCodeTimeout, operation, message, nil)
}

// NewValidationError creates a validation error
func NewValidationError(operation, message string) *LedgerError {
	return NewLedgerError(ErrCodeValidation, operation, message, nil)
}

// NewPreconditionError creates a precondition error
func NewPreconditionError(operation, message string) *LedgerError {
	return NewLedgerError(ErrCodePrecondition, operation, message, nil)
}

// NewBusyError creates a busy error
func NewBusyError(operation, address string) *LedgerError {
	return NewLedgerError(ErrCodeBusy, operation, "operation already in progress", nil).WithContext("address", address)
}

// NewDatabaseError creates a database error
func NewDatabaseError(operation, message string, cause error) *LedgerError {
	return NewLedgerError(ErrCodeDatabase, operation, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *LedgerError {
	return NewLedgerError(ErrCodeConfig, "", message, nil)
}

// NewInternalError creates an internal error
func NewInternalError(operation, message string, cause error) *LedgerError {
	return NewLedgerError(ErrCodeInternal, operation, message, cause)
}
