package msg

import "errors"

// Decode and encode failures. Returned errors wrap one of these
// (usually via errors.Join), so test them with errors.Is.
var (
	// bytes were the right length but not a recognized value
	ErrInvalidData = errors.New("invalid data")

	// the header named a command that has no payload decoder
	ErrUnsupportedCommand = errors.New("unsupported command")

	// the source ran out before a field was complete
	ErrTruncated = errors.New("truncated")

	ErrTimestampBeforeEpoch = errors.New("timestamp before unix epoch")
	ErrCommandTooLong       = errors.New("command longer than 12 bytes")

	// stream framing (ReadMessage)
	ErrWrongNetwork     = errors.New("wrong network magic")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
