package msg_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"code.dogecoin.org/bittune/pkg/msg"
)

func TestNetworkMagic(t *testing.T) {
	var main, test bytes.Buffer

	_, err := msg.EncodeMagic(&main, msg.MagicMain)
	require.NoError(t, err)
	_, err = msg.EncodeMagic(&test, msg.MagicTest)
	require.NoError(t, err)

	require.Equal(t, []byte{0xF9, 0xBE, 0xB4, 0xD9}, main.Bytes())
	require.Equal(t, []byte{0xFA, 0xBF, 0xB5, 0xDA}, test.Bytes())
}

func TestMagicDecode(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		for _, m := range []msg.Magic{msg.MagicMain, msg.MagicTest, msg.MagicTestnet3, msg.MagicSignet} {
			var buf bytes.Buffer
			n, err := msg.EncodeMagic(&buf, m)
			require.NoError(t, err)
			require.Equal(t, 4, n)

			dec, err := msg.DecodeMagic(&buf)
			require.NoError(t, err)
			require.Equal(t, m, dec)
		}
	})

	t.Run("no byte reversal", func(t *testing.T) {
		_, err := msg.DecodeMagic(bytes.NewReader([]byte{0xD9, 0xB4, 0xBE, 0xF9}))
		require.ErrorIs(t, err, msg.ErrInvalidData)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := msg.DecodeMagic(bytes.NewReader([]byte{0x01, 0x02, 0x03, 0x04}))
		require.ErrorIs(t, err, msg.ErrInvalidData)

		_, err = msg.EncodeMagic(&bytes.Buffer{}, msg.Magic(0x04030201))
		require.ErrorIs(t, err, msg.ErrInvalidData)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := msg.DecodeMagic(bytes.NewReader([]byte{0xF9, 0xBE}))
		require.ErrorIs(t, err, msg.ErrTruncated)
	})
}

func TestParseMagic(t *testing.T) {
	m, err := msg.ParseMagic("Main")
	require.NoError(t, err)
	require.Equal(t, msg.MagicMain, m)
	require.Equal(t, uint16(8333), m.DefaultPort())
	require.Equal(t, "main", m.String())

	m, err = msg.ParseMagic("testnet3")
	require.NoError(t, err)
	require.Equal(t, msg.MagicTestnet3, m)

	_, err = msg.ParseMagic("dogecoin")
	require.ErrorIs(t, err, msg.ErrInvalidData)
}
