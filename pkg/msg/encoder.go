package msg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

// Decode

// Decoder reads protocol fields from a byte source in wire order.
// The first failure is kept: every later read is a no-op returning
// the zero value, and Err reports the failure.
type Decoder struct {
	r   io.Reader
	err error
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Err returns the first failure encountered, if any.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

// Fill reads exactly len(dst) bytes into dst. On a short read dst is
// zeroed, so a failed fixed-width read always decodes as zero.
func (d *Decoder) Fill(dst []byte) {
	if d.err != nil {
		clear(dst)
		return
	}
	n, err := io.ReadFull(d.r, dst)
	if err != nil {
		clear(dst)
		d.fail(errors.Join(ErrTruncated, fmt.Errorf("read %d of %d bytes: %w", n, len(dst), err)))
	}
}

func (d *Decoder) Bytes(num int) []byte {
	if d.err != nil {
		return nil
	}
	buf := make([]byte, num)
	d.Fill(buf)
	if d.err != nil {
		return nil
	}
	return buf
}

func (d *Decoder) Bool() bool {
	return d.UInt8() != 0
}

func (d *Decoder) UInt8() uint8 {
	var buf [1]byte
	d.Fill(buf[:])
	return buf[0]
}

func (d *Decoder) UInt16le() uint16 {
	var buf [2]byte
	d.Fill(buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

func (d *Decoder) UInt16be() uint16 {
	var buf [2]byte
	d.Fill(buf[:])
	return binary.BigEndian.Uint16(buf[:])
}

func (d *Decoder) UInt32le() uint32 {
	var buf [4]byte
	d.Fill(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}

func (d *Decoder) UInt64le() uint64 {
	var buf [8]byte
	d.Fill(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func (d *Decoder) Int32le() int32 {
	return int32(d.UInt32le())
}

// VarUInt reads a CompactSize integer, consuming only the bytes of
// the detected form. Non-minimal encodings are rejected.
func (d *Decoder) VarUInt() uint64 {
	val := d.UInt8()
	if d.err != nil {
		return 0
	}
	switch val {
	case 0xFD:
		v := uint64(d.UInt16le())
		d.canonical(v, 0xFD)
		return v
	case 0xFE:
		v := uint64(d.UInt32le())
		d.canonical(v, 0x10000)
		return v
	case 0xFF:
		v := d.UInt64le()
		d.canonical(v, 0x100000000)
		return v
	}
	return uint64(val)
}

func (d *Decoder) canonical(v uint64, min uint64) {
	if d.err == nil && v < min {
		d.fail(errors.Join(ErrInvalidData, fmt.Errorf("non-canonical varint: %d uses a wider form than needed", v)))
	}
}

// VarString reads a VarInt length followed by that many bytes.
// Lengths above max are rejected before anything is allocated.
func (d *Decoder) VarString(max uint64) string {
	size := d.VarUInt()
	if d.err != nil {
		return ""
	}
	if size > max {
		d.fail(errors.Join(ErrInvalidData, fmt.Errorf("string length %d exceeds %d", size, max)))
		return ""
	}
	return string(d.Bytes(int(size)))
}

// PadString reads a fixed-size field and returns the bytes before
// the first zero byte.
func (d *Decoder) PadString(size int) string {
	data := d.Bytes(size)
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

// Timestamp reads whole seconds since the unix epoch (u64).
func (d *Decoder) Timestamp() time.Time {
	secs := d.UInt64le()
	if d.err != nil {
		return time.Time{}
	}
	if secs > math.MaxInt64 {
		d.fail(errors.Join(ErrInvalidData, fmt.Errorf("timestamp out of range: %d", secs)))
		return time.Time{}
	}
	return time.Unix(int64(secs), 0)
}

// Encode

// Encoder writes protocol fields to a byte sink in wire order.
// The first write failure is kept and stops all further writes.
type Encoder struct {
	w   io.Writer
	n   int
	err error
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Result returns the number of bytes written and the first failure.
func (e *Encoder) Result() (int, error) {
	return e.n, e.err
}

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) Bytes(b []byte) {
	if e.err != nil || len(b) == 0 {
		return
	}
	n, err := e.w.Write(b)
	e.n += n
	if err != nil {
		e.fail(err)
	} else if n < len(b) {
		e.fail(io.ErrShortWrite)
	}
}

func (e *Encoder) Bool(b bool) {
	var v byte = 0
	if b {
		v = 1
	}
	e.UInt8(v)
}

func (e *Encoder) UInt8(v uint8) {
	e.Bytes([]byte{v})
}

func (e *Encoder) UInt16le(v uint16) {
	e.Bytes(binary.LittleEndian.AppendUint16(nil, v))
}

func (e *Encoder) UInt16be(v uint16) {
	e.Bytes(binary.BigEndian.AppendUint16(nil, v))
}

func (e *Encoder) UInt32le(v uint32) {
	e.Bytes(binary.LittleEndian.AppendUint32(nil, v))
}

func (e *Encoder) UInt64le(v uint64) {
	e.Bytes(binary.LittleEndian.AppendUint64(nil, v))
}

func (e *Encoder) Int32le(v int32) {
	e.UInt32le(uint32(v))
}

// VarUInt writes val in the shortest CompactSize form.
func (e *Encoder) VarUInt(val uint64) {
	buf := make([]byte, 0, 9)
	if val < 0xFD {
		buf = append(buf, byte(val))
	} else if val <= 0xFFFF {
		buf = append(buf, 0xFD)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(val))
	} else if val <= 0xFFFFFFFF {
		buf = append(buf, 0xFE)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(val))
	} else {
		buf = append(buf, 0xFF)
		buf = binary.LittleEndian.AppendUint64(buf, val)
	}
	e.Bytes(buf)
}

func (e *Encoder) VarString(v string) {
	e.VarUInt(uint64(len(v)))
	e.Bytes([]byte(v))
}

// PadString writes v left-justified in a zero-filled field of size bytes.
func (e *Encoder) PadString(size int, v string) {
	if len(v) > size {
		e.fail(fmt.Errorf("string %q does not fit in %d bytes", v, size))
		return
	}
	buf := make([]byte, size)
	copy(buf, v)
	e.Bytes(buf)
}

// Timestamp writes whole seconds since the unix epoch (u64).
func (e *Encoder) Timestamp(t time.Time) {
	secs := t.Unix()
	if secs < 0 {
		e.fail(errors.Join(ErrTimestampBeforeEpoch, fmt.Errorf("timestamp: %v", t)))
		return
	}
	e.UInt64le(uint64(secs))
}
