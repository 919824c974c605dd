package msg_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"code.dogecoin.org/bittune/pkg/msg"
)

func TestServiceFlags(t *testing.T) {
	flags := msg.NewServicesList()
	flags.Add(msg.ServiceNetwork)

	var encoded bytes.Buffer
	n, err := msg.EncodeServices(&encoded, flags)

	require.NoError(t, err)
	require.Equal(t, 8, n)
	require.Equal(t, []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}, encoded.Bytes())
}

func TestServicesList(t *testing.T) {
	t.Run("flags combine with OR", func(t *testing.T) {
		s := msg.NewServicesList(msg.ServiceNetwork, msg.ServiceWitness, msg.ServiceNetworkLimited, msg.ServiceWitness)

		require.Equal(t, uint64(0x409), s.Word())
		require.Equal(t, []msg.ServiceFlag{msg.ServiceNetwork, msg.ServiceWitness, msg.ServiceNetworkLimited}, s.Flags())
		require.True(t, s.Has(msg.ServiceWitness))
		require.False(t, s.Has(msg.ServiceBloom))
		require.Equal(t, "NETWORK|WITNESS|NETWORK_LIMITED", s.String())
	})

	t.Run("remove", func(t *testing.T) {
		s := msg.NewServicesList(msg.ServiceNetwork, msg.ServiceBloom)
		s.Remove(msg.ServiceNetwork)

		require.Equal(t, []msg.ServiceFlag{msg.ServiceBloom}, s.Flags())
	})

	t.Run("decode keeps unknown bits", func(t *testing.T) {
		s, err := msg.DecodeServices(bytes.NewReader([]byte{0x09, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80}))

		require.NoError(t, err)
		require.Equal(t, []msg.ServiceFlag{msg.ServiceNetwork, msg.ServiceWitness, msg.ServiceFlag(1 << 63)}, s.Flags())
		require.Equal(t, "NETWORK|WITNESS|UNKNOWN[63]", s.String())
	})

	t.Run("short word", func(t *testing.T) {
		s, err := msg.DecodeServices(bytes.NewReader([]byte{0x09, 0x04}))

		require.ErrorIs(t, err, msg.ErrTruncated)
		require.Equal(t, msg.ServicesList{}, s)
		require.Empty(t, s.Flags())
	})

	t.Run("empty", func(t *testing.T) {
		var s msg.ServicesList
		require.Empty(t, s.Flags())
		require.Zero(t, s.Word())
		require.Equal(t, "NONE", s.String())
	})
}
