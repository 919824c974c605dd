package msg

import "io"

// VerackMsg acknowledges a version message. It has no payload.
type VerackMsg struct{}

func (VerackMsg) Command() Command { return CmdVerack }

func (VerackMsg) encode(*Encoder) {}

// EncodeVerack writes nothing and reports zero bytes.
func EncodeVerack(w io.Writer, v VerackMsg) (int, error) {
	return EncodePayload(w, v)
}

// DecodeVerack reads nothing and always succeeds.
func DecodeVerack(io.Reader) (VerackMsg, error) {
	return VerackMsg{}, nil
}
