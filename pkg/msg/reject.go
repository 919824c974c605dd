package msg

import "io"

type RejectCode uint8

const (
	RejectMalformed       RejectCode = 0x01
	RejectInvalid         RejectCode = 0x10
	RejectObsolete        RejectCode = 0x11
	RejectDuplicate       RejectCode = 0x12
	RejectNonstandard     RejectCode = 0x40
	RejectDust            RejectCode = 0x41
	RejectInsufficientFee RejectCode = 0x42
	RejectCheckpoint      RejectCode = 0x43
)

func (c RejectCode) String() string {
	switch c {
	case RejectMalformed:
		return "malformed"
	case RejectInvalid:
		return "invalid"
	case RejectObsolete:
		return "obsolete"
	case RejectDuplicate:
		return "duplicate"
	case RejectNonstandard:
		return "nonstandard"
	case RejectDust:
		return "dust"
	case RejectInsufficientFee:
		return "insufficient-fee"
	case RejectCheckpoint:
		return "checkpoint"
	default:
		return "unknown"
	}
}

// Longest reject message/reason accepted when decoding.
const MaxRejectReasonLen = 111

// RejectMsg is sent by older nodes when they refuse a message.
type RejectMsg struct {
	Message string     // command of the rejected message
	Code    RejectCode // reason code
	Reason  string     // human readable reason
	Data    []byte     // optional: hash of the rejected block or tx
}

func (RejectMsg) Command() Command { return CmdReject }

func (m RejectMsg) encode(e *Encoder) {
	e.VarString(m.Message)
	e.UInt8(uint8(m.Code))
	e.VarString(m.Reason)
	e.Bytes(m.Data)
}

// reject consumes the rest of the source as Data, so it must only be
// used with a source bounded by the header length.
func (d *Decoder) reject() (m RejectMsg) {
	m.Message = d.VarString(CommandSize)
	m.Code = RejectCode(d.UInt8())
	m.Reason = d.VarString(MaxRejectReasonLen)
	if d.err != nil {
		return RejectMsg{}
	}
	rest, err := io.ReadAll(d.r)
	if err != nil {
		d.fail(err)
		return RejectMsg{}
	}
	if len(rest) > 0 {
		m.Data = rest
	}
	return
}
