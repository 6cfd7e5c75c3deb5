package codec

import (
	"fmt"

	lerrors "github.com/pushchain/typechain-client/ledgerClient/errors"
)

// DecodeReason classifies a decode failure.
type DecodeReason string

const (
	ReasonTruncated   DecodeReason = "truncated"
	ReasonUnknownKind DecodeReason = "unknown_kind"
	ReasonInvalid     DecodeReason = "invalid"
)

// DecodeError is returned when bytes do not match the expected layout.
// No partial record is ever returned alongside it.
type DecodeError struct {
	Target string
	Reason DecodeReason
	Detail string
}

func (e *DecodeError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("decode %s: %s", e.Target, e.Reason)
	}
	return fmt.Sprintf("decode %s: %s: %s", e.Target, e.Reason, e.Detail)
}

// Is makes DecodeError match lerrors.ErrDecode.
func (e *DecodeError) Is(target error) bool {
	return lerrors.CodeOf(target) == lerrors.ErrCodeDecode
}
