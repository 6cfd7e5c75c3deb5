package ledger

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Program error codes as returned in Custom(n) instruction errors.
const (
	ErrInvalidInstruction       uint32 = 0
	ErrPlayerAlreadyInitialized uint32 = 1
	ErrContestNotFound          uint32 = 2
	ErrContestFull              uint32 = 3
	ErrContestEnded             uint32 = 4
	ErrPlayerNotInContest       uint32 = 5
	ErrContestNotActive         uint32 = 6
	ErrInsufficientBalance      uint32 = 7
	ErrInvalidAccountData       uint32 = 8
	ErrUnauthorized             uint32 = 9
)

var programErrorText = map[uint32]string{
	ErrInvalidInstruction:       "Invalid instruction",
	ErrPlayerAlreadyInitialized: "Player already initialized",
	ErrContestNotFound:          "Contest not found",
	ErrContestFull:              "Contest is full",
	ErrContestEnded:             "Contest has already ended",
	ErrPlayerNotInContest:       "Player not in contest",
	ErrContestNotActive:         "Contest not active",
	ErrInsufficientBalance:      "Insufficient account balance",
	ErrInvalidAccountData:       "Invalid account data",
	ErrUnauthorized:             "Unauthorized",
}

// DescribeProgramError returns the program's message for a custom error code.
func DescribeProgramError(code uint32) string {
	if text, ok := programErrorText[code]; ok {
		return text
	}
	return fmt.Sprintf("unknown program error %d", code)
}

// InstructionErrorReason renders the ledger's error object for a failed
// custom program instruction, as it appears in signature statuses.
func InstructionErrorReason(index int, code uint32) string {
	raw, _ := json.Marshal(map[string]interface{}{
		"InstructionError": []interface{}{index, map[string]uint32{"Custom": code}},
	})
	return string(raw)
}

var customCodePattern = regexp.MustCompile(`"?Custom"?\s*[:(]\s*(\d+)|custom program error: 0x([0-9a-fA-F]+)`)

// CustomErrorCode extracts a custom program error code from a verbatim ledger reason.
func CustomErrorCode(reason string) (uint32, bool) {
	m := customCodePattern.FindStringSubmatch(reason)
	if m == nil {
		return 0, false
	}
	if m[1] != "" {
		v, err := strconv.ParseUint(m[1], 10, 32)
		return uint32(v), err == nil
	}
	v, err := strconv.ParseUint(m[2], 16, 32)
	return uint32(v), err == nil
}

// ProgramErrorOf names the program error found in a verbatim ledger reason.
func ProgramErrorOf(reason string) (string, bool) {
	code, ok := CustomErrorCode(reason)
	if !ok {
		return "", false
	}
	return DescribeProgramError(code), true
}
