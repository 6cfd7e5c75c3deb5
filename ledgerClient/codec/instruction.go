package codec

import (
	"encoding/binary"
	"fmt"
)

// InstructionTag is the leading byte of every program instruction.
type InstructionTag uint8

const (
	TagInitializePlayer    InstructionTag = 0
	TagCreateContest       InstructionTag = 1
	TagJoinContest         InstructionTag = 2
	TagSubmitResult        InstructionTag = 3
	TagUpdatePracticeStats InstructionTag = 4
)

// Encoded instruction sizes, tag included.
const (
	InitializePlayerSize    = 1
	CreateContestSize       = 1 + 4 + 8
	JoinContestSize         = 1
	SubmitResultSize        = 1 + 4 + 4 + 8
	UpdatePracticeStatsSize = 1 + 4 + 4 + 4
)

func (t InstructionTag) String() string {
	switch t {
	case TagInitializePlayer:
		return "initialize_player"
	case TagCreateContest:
		return "create_contest"
	case TagJoinContest:
		return "join_contest"
	case TagSubmitResult:
		return "submit_result"
	case TagUpdatePracticeStats:
		return "update_practice_stats"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Request is one of the program operations the client can encode.
type Request interface {
	Tag() InstructionTag
}

type InitializePlayer struct{}

type CreateContest struct {
	TextID          uint32
	DurationSeconds uint64
}

type JoinContest struct{}

type SubmitResult struct {
	WPM       uint32
	Accuracy  uint32
	TimeTaken uint64
}

type UpdatePracticeStats struct {
	WPM        uint32
	Accuracy   uint32
	WordsTyped uint32
}

func (InitializePlayer) Tag() InstructionTag    { return TagInitializePlayer }
func (CreateContest) Tag() InstructionTag       { return TagCreateContest }
func (JoinContest) Tag() InstructionTag         { return TagJoinContest }
func (SubmitResult) Tag() InstructionTag        { return TagSubmitResult }
func (UpdatePracticeStats) Tag() InstructionTag { return TagUpdatePracticeStats }

// Encode serializes req into the program's instruction layout: a one byte
// tag followed by little-endian fields. Values are written as given.
func Encode(req Request) []byte {
	switch r := req.(type) {
	case InitializePlayer:
		return []byte{byte(TagInitializePlayer)}
	case JoinContest:
		return []byte{byte(TagJoinContest)}
	case CreateContest:
		data := make([]byte, CreateContestSize)
		data[0] = byte(TagCreateContest)
		binary.LittleEndian.PutUint32(data[1:5], r.TextID)
		binary.LittleEndian.PutUint64(data[5:13], r.DurationSeconds)
		return data
	case SubmitResult:
		data := make([]byte, SubmitResultSize)
		data[0] = byte(TagSubmitResult)
		binary.LittleEndian.PutUint32(data[1:5], r.WPM)
		binary.LittleEndian.PutUint32(data[5:9], r.Accuracy)
		binary.LittleEndian.PutUint64(data[9:17], r.TimeTaken)
		return data
	case UpdatePracticeStats:
		data := make([]byte, UpdatePracticeStatsSize)
		data[0] = byte(TagUpdatePracticeStats)
		binary.LittleEndian.PutUint32(data[1:5], r.WPM)
		binary.LittleEndian.PutUint32(data[5:9], r.Accuracy)
		binary.LittleEndian.PutUint32(data[9:13], r.WordsTyped)
		return data
	default:
		panic(fmt.Sprintf("codec: unsupported request type %T", req))
	}
}

// DecodeInstruction parses instruction data produced by Encode.
// Trailing bytes are rejected.
func DecodeInstruction(data []byte) (Request, error) {
	if len(data) == 0 {
		return nil, &DecodeError{Target: "instruction", Reason: ReasonTruncated, Detail: "empty instruction data"}
	}

	tag := InstructionTag(data[0])
	want, ok := instructionSizes[tag]
	if !ok {
		return nil, &DecodeError{Target: "instruction", Reason: ReasonInvalid, Detail: fmt.Sprintf("unknown instruction tag %d", data[0])}
	}
	if len(data) < want {
		return nil, &DecodeError{Target: tag.String(), Reason: ReasonTruncated, Detail: fmt.Sprintf("need %d bytes, have %d", want, len(data))}
	}
	if len(data) > want {
		return nil, &DecodeError{Target: tag.String(), Reason: ReasonInvalid, Detail: fmt.Sprintf("%d trailing bytes", len(data)-want)}
	}

	switch tag {
	case TagInitializePlayer:
		return InitializePlayer{}, nil
	case TagJoinContest:
		return JoinContest{}, nil
	case TagCreateContest:
		return CreateContest{
			TextID:          binary.LittleEndian.Uint32(data[1:5]),
			DurationSeconds: binary.LittleEndian.Uint64(data[5:13]),
		}, nil
	case TagSubmitResult:
		return SubmitResult{
			WPM:       binary.LittleEndian.Uint32(data[1:5]),
			Accuracy:  binary.LittleEndian.Uint32(data[5:9]),
			TimeTaken: binary.LittleEndian.Uint64(data[9:17]),
		}, nil
	default:
		return UpdatePracticeStats{
			WPM:        binary.LittleEndian.Uint32(data[1:5]),
			Accuracy:   binary.LittleEndian.Uint32(data[5:9]),
			WordsTyped: binary.LittleEndian.Uint32(data[9:13]),
		}, nil
	}
}

var instructionSizes = map[InstructionTag]int{
	TagInitializePlayer:    InitializePlayerSize,
	TagCreateContest:       CreateContestSize,
	TagJoinContest:         JoinContestSize,
	TagSubmitResult:        SubmitResultSize,
	TagUpdatePracticeStats: UpdatePracticeStatsSize,
}
