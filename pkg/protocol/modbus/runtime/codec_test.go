package runtime

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"domogateway/pkg/runtime/constant"
	"github.com/goburrow/modbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombineToInt32RoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 4, 2000, 65535, 65536, -65536, math.MaxInt32, math.MinInt32} {
		low, high := SplitInt32(v)
		assert.Equal(t, v, CombineToInt32(low, high), "value %d", v)
	}
	assert.Equal(t, int32(3), CombineToInt32(3, 0))
	assert.Equal(t, int32(0x0001FFFF), CombineToInt32(-1, 1))
}

func TestCombineToFloat32RoundTrip(t *testing.T) {
	for _, f := range []float32{0.0, -0.25, 123.4, 19.2} {
		a, b := SplitFloat32(f)
		assert.Equal(t, f, CombineToFloat32(a, b), "value %v", f)
	}
	// 0x41A00000 = 20.0, high order register first
	assert.Equal(t, float32(20.0), CombineToFloat32(0x41A0, 0x0000))
}

func TestEncodeReadRequestMatchesReferenceClient(t *testing.T) {
	pdu, err := EncodeReadRequest(324, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0x01, 0x44, 0x00, 0x02}, pdu)

	handler := modbus.NewTCPClientHandler("127.0.0.1:502")
	handler.SlaveId = DefaultUnitId
	want, err := handler.Encode(&modbus.ProtocolDataUnit{FunctionCode: pdu[0], Data: pdu[1:]})
	require.NoError(t, err)
	assert.True(t, bytes.Equal(want, EncodeADU(1, DefaultUnitId, pdu)))

	_, err = EncodeReadRequest(0, 0)
	assert.Error(t, err)
	_, err = EncodeReadRequest(0, 126)
	assert.Error(t, err)
}

func TestEncodeWriteRequest(t *testing.T) {
	assert.Equal(t, []byte{0x10, 0x01, 0x44, 0x00, 0x02, 0x04, 0x00, 0x03, 0x00, 0x00}, EncodeWriteRequest(324, 3))
}

func TestDecodeRegisters(t *testing.T) {
	regs, err := DecodeRegisters([]byte{0x03, 0x04, 0x00, 0x02, 0xFF, 0xFE}, 2)
	require.NoError(t, err)
	assert.Equal(t, []int16{2, -2}, regs)

	_, err = DecodeRegisters([]byte{0x03, 0x04, 0x00, 0x02}, 2)
	assert.True(t, errors.Is(err, constant.ErrProtocol))

	_, err = DecodeRegisters([]byte{0x03, 0x02, 0x00, 0x02}, 2)
	assert.True(t, errors.Is(err, constant.ErrProtocol))

	_, err = DecodeRegisters([]byte{0x83, 0x02}, 2)
	assert.True(t, errors.Is(err, constant.ErrProtocol))
	assert.Contains(t, err.Error(), "illegal data address")

	_, err = DecodeRegisters(nil, 2)
	assert.True(t, errors.Is(err, constant.ErrProtocol))
}

func TestDecodeWriteResponse(t *testing.T) {
	assert.NoError(t, DecodeWriteResponse([]byte{0x10, 0x01, 0x44, 0x00, 0x02}, 324, 2))
	assert.Error(t, DecodeWriteResponse([]byte{0x10, 0x01, 0x45, 0x00, 0x02}, 324, 2))
	assert.Error(t, DecodeWriteResponse([]byte{0x10, 0x01}, 324, 2))
	assert.Error(t, DecodeWriteResponse([]byte{0x90, 0x04}, 324, 2))
}

func TestDecodeADU(t *testing.T) {
	pdu := []byte{0x03, 0x02, 0x00, 0x07}
	adu := EncodeADU(9, 1, pdu)

	got, err := DecodeADU(adu, 9, 1)
	require.NoError(t, err)
	assert.Equal(t, pdu, got)

	_, err = DecodeADU(adu, 10, 1)
	assert.True(t, errors.Is(err, constant.ErrProtocol))
	_, err = DecodeADU(adu, 9, 2)
	assert.True(t, errors.Is(err, constant.ErrProtocol))
	_, err = DecodeADU(adu[:len(adu)-1], 9, 1)
	assert.True(t, errors.Is(err, constant.ErrProtocol))
	_, err = DecodeADU(adu[:4], 9, 1)
	assert.True(t, errors.Is(err, constant.ErrProtocol))
}

func TestReadADU(t *testing.T) {
	adu := EncodeADU(3, 1, []byte{0x03, 0x02, 0x00, 0x07})
	got, err := ReadADU(bytes.NewReader(append(adu, 0xEE)))
	require.NoError(t, err)
	assert.Equal(t, adu, got)

	got, err = ReadADU(bytes.NewReader(adu[:9]))
	require.NoError(t, err)
	assert.Len(t, got, 9)

	bad := []byte{0, 3, 0, 0, 0xFF, 0xFF, 1}
	got, err = ReadADU(bytes.NewReader(bad))
	require.NoError(t, err)
	_, err = DecodeADU(got, 3, 1)
	assert.True(t, errors.Is(err, constant.ErrProtocol))
}
