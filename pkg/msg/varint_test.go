package msg_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"code.dogecoin.org/bittune/pkg/msg"
)

func TestVarInt(t *testing.T) {
	ints := []uint64{0x01, 0xFC, 0xFD, 0x1000, 0xFFFF, 0x10000, 0x55555, 0xFFFF_FFFF, 0x1000_0000_0000}
	lens := []int{1, 1, 3, 3, 3, 5, 5, 5, 9}

	for i, v := range ints {
		t.Run(fmt.Sprintf("%#x", v), func(t *testing.T) {
			// given
			var buf bytes.Buffer

			// when
			n, err := msg.EncodeVarInt(&buf, msg.VarInt(v))

			// then
			require.NoError(t, err)
			require.Equal(t, lens[i], n)
			require.Equal(t, lens[i], buf.Len())
			require.Equal(t, lens[i], msg.VarInt(v).Size())

			dec, err := msg.DecodeVarInt(&buf)
			require.NoError(t, err)
			require.Equal(t, msg.VarInt(v), dec)
			require.Zero(t, buf.Len())
		})
	}
}

func TestVarIntWireForm(t *testing.T) {
	tt := []struct {
		value uint64
		wire  []byte
	}{
		{0xFC, []byte{0xFC}},
		{0xFD, []byte{0xFD, 0xFD, 0x00}},
		{0x1234, []byte{0xFD, 0x34, 0x12}},
		{0x10000, []byte{0xFE, 0x00, 0x00, 0x01, 0x00}},
		{0x1_0000_0000, []byte{0xFF, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00}},
	}
	for _, tc := range tt {
		var buf bytes.Buffer
		_, err := msg.EncodeVarInt(&buf, msg.VarInt(tc.value))
		require.NoError(t, err)
		require.Equal(t, tc.wire, buf.Bytes())
	}
}

func TestVarIntRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint64().Draw(t, "v")

		var buf bytes.Buffer
		n, err := msg.EncodeVarInt(&buf, msg.VarInt(v))
		require.NoError(t, err)
		require.Equal(t, msg.VarInt(v).Size(), n)

		dec, err := msg.DecodeVarInt(&buf)
		require.NoError(t, err)
		require.Equal(t, v, uint64(dec))
	})
}

func TestVarIntDecode(t *testing.T) {
	t.Run("does not over-read", func(t *testing.T) {
		src := bytes.NewReader([]byte{0xFD, 0x00, 0x01, 0xAA, 0xBB})

		v, err := msg.DecodeVarInt(src)

		require.NoError(t, err)
		require.Equal(t, msg.VarInt(0x100), v)
		require.Equal(t, 2, src.Len())
	})

	t.Run("non-canonical", func(t *testing.T) {
		_, err := msg.DecodeVarInt(bytes.NewReader([]byte{0xFD, 0x10, 0x00}))
		require.ErrorIs(t, err, msg.ErrInvalidData)

		_, err = msg.DecodeVarInt(bytes.NewReader([]byte{0xFE, 0xFF, 0xFF, 0x00, 0x00}))
		require.ErrorIs(t, err, msg.ErrInvalidData)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := msg.DecodeVarInt(bytes.NewReader([]byte{0xFE, 0x01}))
		require.ErrorIs(t, err, msg.ErrTruncated)

		_, err = msg.DecodeVarInt(bytes.NewReader(nil))
		require.ErrorIs(t, err, msg.ErrTruncated)
	})
}
