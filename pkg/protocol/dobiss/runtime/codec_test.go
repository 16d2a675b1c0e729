package runtime

import (
	"errors"
	"testing"

	"domogateway/pkg/runtime/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrames(t *testing.T) {
	assert.Equal(t, []byte{0xAF, 0x01, 0xFF, 0x05, 0, 0, 0, 0x01, 0, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xAF}, EncodeStatusQuery(5))
	assert.Equal(t, []byte{0xAF, 0x02, 0x04, 0x05, 0, 0, 0x08, 0x01, 0x08, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xAF}, EncodeCommandHeader(KindRelay, 5))
	assert.Equal(t, byte(0xFF), EncodeCommandHeader(KindDimmer, 2)[2])
	assert.Equal(t, []byte{0x05, 0x02, 0x01, 0xFF, 0xFF, 0x64, 0xFF, 0xFF}, EncodeCommandPayload(5, 3, 1, 0x64))

	for _, f := range [][]byte{EncodeStatusQuery(1), EncodeCommandHeader(KindRelay, 1)} {
		assert.Len(t, f, HeaderLength)
		assert.Equal(t, byte(0xAF), f[0])
		assert.Equal(t, byte(0xAF), f[HeaderLength-1])
	}
}

func TestDecodeStatusResponse(t *testing.T) {
	buf := make([]byte, 128)
	copy(buf[32:], []byte{1, 0, 1, 0})
	raw, err := DecodeStatusResponse(buf, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 1, 0}, raw)

	_, err = DecodeStatusResponse(buf[:40], RelayChannels)
	assert.True(t, errors.Is(err, constant.ErrProtocol))
}

func TestRelayModule(t *testing.T) {
	r := NewRelay("relay01", 5)
	assert.True(t, r.Enabled())
	assert.Equal(t, "relay01_channel11", r.ChannelId(11))

	buf := make([]byte, 128)
	copy(buf[32:], []byte{1, 0, 1, 0, 2})
	values, err := r.DecodeStatus(buf)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0}, values)

	h, p, err := r.EncodeCommand(12, 0)
	require.NoError(t, err)
	assert.Equal(t, EncodeCommandHeader(KindRelay, 5), h)
	assert.Equal(t, []byte{5, 11, 0, 0xFF, 0xFF, 0x64, 0xFF, 0xFF}, p)

	_, _, err = r.EncodeCommand(13, 1)
	assert.Error(t, err)
	_, _, err = r.EncodeCommand(1, 2)
	assert.Error(t, err)

	assert.False(t, NewRelay("relay02", 0).Enabled())
}

func TestDimmerModule(t *testing.T) {
	d := NewDimmer("dimmer01", 9)
	buf := make([]byte, 128)
	copy(buf[32:], []byte{0, 55, 100, 3})
	values, err := d.DecodeStatus(buf)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 55, 100, 3}, values)

	buf[33] = 101
	_, err = d.DecodeStatus(buf)
	assert.True(t, errors.Is(err, constant.ErrProtocol))

	_, p, err := d.EncodeCommand(2, 40)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 1, 1, 0xFF, 0xFF, 40, 0xFF, 0xFF}, p)

	_, _, err = d.EncodeCommand(5, 40)
	assert.Error(t, err)
}

func TestNewModule(t *testing.T) {
	m, err := NewModule(KindDimmer, "dimmer01", 3)
	require.NoError(t, err)
	assert.Equal(t, DimmerChannels, m.Channels())

	_, err = NewModule("blind", "blind01", 3)
	assert.True(t, errors.Is(err, constant.ErrConfiguration))
}
