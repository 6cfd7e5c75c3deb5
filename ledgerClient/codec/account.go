package codec

import (
	"bytes"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// AccountKind identifies the record layout stored in a program account.
type AccountKind string

const (
	KindPlayer  AccountKind = "player"
	KindContest AccountKind = "contest"
)

// Account sizes allocated by the program.
const (
	PlayerAccountSize  = 32 + 4 + 4 + 4 + 4 + 8 + 8 + 8
	ContestAccountSize = 32 + 4 + 8 + 1 + (32 * 10) + (64 * 10) + 8 + 9 + 9 + 1

	contestResultSize = 32 + 4 + 4 + 8 + 4
)

// KindForSize classifies a program account by its data length.
func KindForSize(n int) (AccountKind, bool) {
	switch n {
	case PlayerAccountSize:
		return KindPlayer, true
	case ContestAccountSize:
		return KindContest, true
	default:
		return "", false
	}
}

// Record is a decoded program account.
type Record interface {
	Kind() AccountKind
}

// PlayerRecord is the per-owner statistics account.
type PlayerRecord struct {
	Owner           solana.PublicKey `json:"owner"`
	TotalTests      uint32           `json:"total_tests"`
	BestWPM         uint32           `json:"best_wpm"`
	AverageWPM      uint32           `json:"average_wpm"`
	BestAccuracy    uint32           `json:"best_accuracy"`
	TotalWordsTyped uint64           `json:"total_words_typed"`
	CreatedAt       int64            `json:"created_at"`
	LastActivity    int64            `json:"last_activity"`
}

func (*PlayerRecord) Kind() AccountKind { return KindPlayer }

// ContestStatus mirrors the on-chain enum. It only moves forward.
type ContestStatus uint8

const (
	ContestWaiting ContestStatus = 0
	ContestActive  ContestStatus = 1
	ContestEnded   ContestStatus = 2
)

func (s ContestStatus) String() string {
	switch s {
	case ContestWaiting:
		return "waiting"
	case ContestActive:
		return "active"
	case ContestEnded:
		return "ended"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// MarshalText renders the status by name.
func (s ContestStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type ContestResult struct {
	Player    solana.PublicKey `json:"player"`
	WPM       uint32           `json:"wpm"`
	Accuracy  uint32           `json:"accuracy"`
	TimeTaken uint64           `json:"time_taken"`
	Position  uint32           `json:"position"`
}

// ContestRecord is a multi-party contest account.
type ContestRecord struct {
	Creator         solana.PublicKey   `json:"creator"`
	TextID          uint32             `json:"text_id"`
	DurationSeconds uint64             `json:"duration_seconds"`
	Status          ContestStatus      `json:"status"`
	Participants    []solana.PublicKey `json:"participants"`
	Results         []ContestResult    `json:"results"`
	CreatedAt       int64              `json:"created_at"`
	StartedAt       *int64             `json:"started_at,omitempty"`
	EndedAt         *int64             `json:"ended_at,omitempty"`
	MaxParticipants uint8              `json:"max_participants"`
}

func (*ContestRecord) Kind() AccountKind { return KindContest }

// IsFull reports whether no more participants fit.
func (c *ContestRecord) IsFull() bool {
	return len(c.Participants) >= int(c.MaxParticipants)
}

// HasParticipant reports whether player already joined.
func (c *ContestRecord) HasParticipant(player solana.PublicKey) bool {
	for _, p := range c.Participants {
		if p.Equals(player) {
			return true
		}
	}
	return false
}

// HasResult reports whether player already submitted a result.
func (c *ContestRecord) HasResult(player solana.PublicKey) bool {
	for _, r := range c.Results {
		if r.Player.Equals(player) {
			return true
		}
	}
	return false
}

// CanJoin mirrors the program's join precondition for player.
func (c *ContestRecord) CanJoin(player solana.PublicKey) bool {
	return c.Status == ContestWaiting && !c.IsFull() && !c.HasParticipant(player)
}

// ExpiresAt returns started_at + duration for a started contest.
// Ending a contest remains a program side transition.
func (c *ContestRecord) ExpiresAt() (time.Time, bool) {
	if c.StartedAt == nil {
		return time.Time{}, false
	}
	return time.Unix(*c.StartedAt+int64(c.DurationSeconds), 0), true
}

// IsExpired reports whether an active contest ran past its duration at now.
func (c *ContestRecord) IsExpired(now time.Time) bool {
	if c.Status != ContestActive {
		return false
	}
	exp, ok := c.ExpiresAt()
	return ok && !now.Before(exp)
}

// Decode interprets account data as the given kind.
func Decode(data []byte, kind AccountKind) (Record, error) {
	switch kind {
	case KindPlayer:
		rec, err := DecodePlayer(data)
		if err != nil {
			return nil, err
		}
		return rec, nil
	case KindContest:
		rec, err := DecodeContest(data)
		if err != nil {
			return nil, err
		}
		return rec, nil
	default:
		return nil, &DecodeError{Target: string(kind), Reason: ReasonUnknownKind}
	}
}

// DecodePlayer decodes a player account.
func DecodePlayer(data []byte) (*PlayerRecord, error) {
	if len(data) < PlayerAccountSize {
		return nil, truncated(KindPlayer, fmt.Sprintf("need %d bytes, have %d", PlayerAccountSize, len(data)))
	}

	dec := bin.NewBorshDecoder(data)
	rec := &PlayerRecord{}

	owner, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, truncated(KindPlayer, err.Error())
	}
	rec.Owner = solana.PublicKeyFromBytes(owner)

	for _, field := range []*uint32{&rec.TotalTests, &rec.BestWPM, &rec.AverageWPM, &rec.BestAccuracy} {
		if *field, err = dec.ReadUint32(bin.LE); err != nil {
			return nil, truncated(KindPlayer, err.Error())
		}
	}
	if rec.TotalWordsTyped, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, truncated(KindPlayer, err.Error())
	}
	if rec.CreatedAt, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, truncated(KindPlayer, err.Error())
	}
	if rec.LastActivity, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, truncated(KindPlayer, err.Error())
	}
	return rec, nil
}

// DecodeContest decodes a contest account. Trailing zero padding is ignored.
func DecodeContest(data []byte) (*ContestRecord, error) {
	dec := bin.NewBorshDecoder(data)
	rec := &ContestRecord{}

	creator, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return nil, truncated(KindContest, "creator")
	}
	rec.Creator = solana.PublicKeyFromBytes(creator)

	if rec.TextID, err = dec.ReadUint32(bin.LE); err != nil {
		return nil, truncated(KindContest, "text_id")
	}
	if rec.DurationSeconds, err = dec.ReadUint64(bin.LE); err != nil {
		return nil, truncated(KindContest, "duration")
	}

	status, err := dec.ReadUint8()
	if err != nil {
		return nil, truncated(KindContest, "status")
	}
	if status > uint8(ContestEnded) {
		return nil, &DecodeError{Target: string(KindContest), Reason: ReasonInvalid, Detail: fmt.Sprintf("status tag %d", status)}
	}
	rec.Status = ContestStatus(status)

	n, err := readLen(dec, solana.PublicKeyLength, "participants")
	if err != nil {
		return nil, err
	}
	rec.Participants = make([]solana.PublicKey, 0, n)
	for i := 0; i < n; i++ {
		raw, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return nil, truncated(KindContest, "participants")
		}
		rec.Participants = append(rec.Participants, solana.PublicKeyFromBytes(raw))
	}

	n, err = readLen(dec, contestResultSize, "results")
	if err != nil {
		return nil, err
	}
	rec.Results = make([]ContestResult, 0, n)
	for i := 0; i < n; i++ {
		res, err := readResult(dec)
		if err != nil {
			return nil, err
		}
		rec.Results = append(rec.Results, res)
	}

	if rec.CreatedAt, err = dec.ReadInt64(bin.LE); err != nil {
		return nil, truncated(KindContest, "created_at")
	}
	if rec.StartedAt, err = readOptionalInt64(dec, "started_at"); err != nil {
		return nil, err
	}
	if rec.EndedAt, err = readOptionalInt64(dec, "ended_at"); err != nil {
		return nil, err
	}
	if rec.MaxParticipants, err = dec.ReadUint8(); err != nil {
		return nil, truncated(KindContest, "max_participants")
	}
	return rec, nil
}

// EncodePlayer is the inverse of DecodePlayer.
func EncodePlayer(rec *PlayerRecord) []byte {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteBytes(rec.Owner.Bytes(), false)
	_ = enc.WriteUint32(rec.TotalTests, bin.LE)
	_ = enc.WriteUint32(rec.BestWPM, bin.LE)
	_ = enc.WriteUint32(rec.AverageWPM, bin.LE)
	_ = enc.WriteUint32(rec.BestAccuracy, bin.LE)
	_ = enc.WriteUint64(rec.TotalWordsTyped, bin.LE)
	_ = enc.WriteInt64(rec.CreatedAt, bin.LE)
	_ = enc.WriteInt64(rec.LastActivity, bin.LE)
	return buf.Bytes()
}

// EncodeContest is the inverse of DecodeContest, padded to ContestAccountSize.
func EncodeContest(rec *ContestRecord) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	_ = enc.WriteBytes(rec.Creator.Bytes(), false)
	_ = enc.WriteUint32(rec.TextID, bin.LE)
	_ = enc.WriteUint64(rec.DurationSeconds, bin.LE)
	_ = enc.WriteUint8(uint8(rec.Status))
	_ = enc.WriteUint32(uint32(len(rec.Participants)), bin.LE)
	for _, p := range rec.Participants {
		_ = enc.WriteBytes(p.Bytes(), false)
	}
	_ = enc.WriteUint32(uint32(len(rec.Results)), bin.LE)
	for _, r := range rec.Results {
		_ = enc.WriteBytes(r.Player.Bytes(), false)
		_ = enc.WriteUint32(r.WPM, bin.LE)
		_ = enc.WriteUint32(r.Accuracy, bin.LE)
		_ = enc.WriteUint64(r.TimeTaken, bin.LE)
		_ = enc.WriteUint32(r.Position, bin.LE)
	}
	_ = enc.WriteInt64(rec.CreatedAt, bin.LE)
	writeOptionalInt64(enc, rec.StartedAt)
	writeOptionalInt64(enc, rec.EndedAt)
	_ = enc.WriteUint8(rec.MaxParticipants)

	if buf.Len() > ContestAccountSize {
		return nil, fmt.Errorf("contest record needs %d bytes, account holds %d", buf.Len(), ContestAccountSize)
	}
	out := make([]byte, ContestAccountSize)
	copy(out, buf.Bytes())
	return out, nil
}

func readLen(dec *bin.Decoder, elemSize int, field string) (int, error) {
	n, err := dec.ReadUint32(bin.LE)
	if err != nil {
		return 0, truncated(KindContest, field)
	}
	if uint64(n)*uint64(elemSize) > uint64(dec.Remaining()) {
		return 0, truncated(KindContest, fmt.Sprintf("%s length %d exceeds data", field, n))
	}
	return int(n), nil
}

func readResult(dec *bin.Decoder) (ContestResult, error) {
	var res ContestResult
	raw, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return res, truncated(KindContest, "results")
	}
	res.Player = solana.PublicKeyFromBytes(raw)
	if res.WPM, err = dec.ReadUint32(bin.LE); err != nil {
		return res, truncated(KindContest, "results")
	}
	if res.Accuracy, err = dec.ReadUint32(bin.LE); err != nil {
		return res, truncated(KindContest, "results")
	}
	if res.TimeTaken, err = dec.ReadUint64(bin.LE); err != nil {
		return res, truncated(KindContest, "results")
	}
	if res.Position, err = dec.ReadUint32(bin.LE); err != nil {
		return res, truncated(KindContest, "results")
	}
	return res, nil
}

func readOptionalInt64(dec *bin.Decoder, field string) (*int64, error) {
	tag, err := dec.ReadUint8()
	if err != nil {
		return nil, truncated(KindContest, field)
	}
	switch tag {
	case 0:
		return nil, nil
	case 1:
		v, err := dec.ReadInt64(bin.LE)
		if err != nil {
			return nil, truncated(KindContest, field)
		}
		return &v, nil
	default:
		return nil, &DecodeError{Target: string(KindContest), Reason: ReasonInvalid, Detail: fmt.Sprintf("%s option tag %d", field, tag)}
	}
}

func writeOptionalInt64(enc *bin.Encoder, v *int64) {
	if v == nil {
		_ = enc.WriteUint8(0)
		return
	}
	_ = enc.WriteUint8(1)
	_ = enc.WriteInt64(*v, bin.LE)
}

func truncated(kind AccountKind, detail string) *DecodeError {
	return &DecodeError{Target: string(kind), Reason: ReasonTruncated, Detail: detail}
}
