package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// WrapLedgerError wraps an error as a LedgerError if it isn't already one
func WrapLedgerError(err error, code ErrorCode, operation, message string) *LedgerError {
	if err == nil {
		return nil
	}

	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		if ledgerErr.Context == nil {
			ledgerErr.Context = make(map[string]interface{})
		}
		ledgerErr.Context["wrapped_message"] = message
		if operation != "" && ledgerErr.Operation == "" {
			ledgerErr.Operation = operation
		}
		return ledgerErr
	}

	return NewLedgerError(code, operation, message, err)
}

// Is checks if an error is of a specific type
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As checks if an error can be assigned to a target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// CodeOf returns the code of the first LedgerError in the chain, or "".
func CodeOf(err error) ErrorCode {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.Code
	}
	return ""
}

// ReasonOf returns the ledger reason carried by err, if any.
func ReasonOf(err error) string {
	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.Reason
	}
	return ""
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.IsRetryable()
	}
	return false
}

// GetSeverity returns the severity of an error
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityInfo
	}

	var ledgerErr *LedgerError
	if errors.As(err, &ledgerErr) {
		return ledgerErr.Severity
	}
	return SeverityHigh
}
