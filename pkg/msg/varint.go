package msg

import "io"

// VarInt is an unsigned count in Bitcoin's CompactSize encoding.
type VarInt uint64

// Size returns the number of bytes the shortest form of v occupies.
func (v VarInt) Size() int {
	switch {
	case v < 0xFD:
		return 1
	case v <= 0xFFFF:
		return 3
	case v <= 0xFFFFFFFF:
		return 5
	}
	return 9
}

func EncodeVarInt(w io.Writer, v VarInt) (int, error) {
	e := NewEncoder(w)
	e.VarUInt(uint64(v))
	return e.Result()
}

func DecodeVarInt(r io.Reader) (VarInt, error) {
	d := NewDecoder(r)
	v := d.VarUInt()
	if d.err != nil {
		return 0, d.err
	}
	return VarInt(v), nil
}
