package binutil

import (
	"encoding/hex"
	"math"
)

// ParseUint16 big-endian
func ParseUint16(buf []byte) uint16 {
	return uint16(buf[0])<<8 + uint16(buf[1])
}

// ParseInt16 big-endian, two's complement
func ParseInt16(buf []byte) int16 {
	return int16(ParseUint16(buf))
}

// ParseUint16LittleEndian
func ParseUint16LittleEndian(buf []byte) uint16 {
	return uint16(buf[1])<<8 + uint16(buf[0])
}

// ParseUint32 ABCD
func ParseUint32(buf []byte) uint32 {
	return uint32(buf[0])<<24 +
		uint32(buf[1])<<16 +
		uint32(buf[2])<<8 +
		uint32(buf[3])
}

func ParseFloat32(buf []byte) float32 {
	return math.Float32frombits(ParseUint32(buf))
}

func WriteUint16(buf []byte, value uint16) {
	buf[0] = byte(value >> 8)
	buf[1] = byte(value)
}

func WriteUint16LittleEndian(buf []byte, value uint16) {
	buf[1] = byte(value >> 8)
	buf[0] = byte(value)
}

func WriteUint32(buf []byte, value uint32) {
	buf[0] = byte(value >> 24)
	buf[1] = byte(value >> 16)
	buf[2] = byte(value >> 8)
	buf[3] = byte(value)
}

func WriteFloat32(buf []byte, value float32) {
	WriteUint32(buf, math.Float32bits(value))
}

// Uint16ToBytes big-endian
func Uint16ToBytes(value uint16) []byte {
	buf := make([]byte, 2)
	WriteUint16(buf, value)
	return buf
}

// Dup copies buf so the caller may reuse the source.
func Dup(buf []byte) []byte {
	b := make([]byte, len(buf))
	copy(b, buf)
	return b
}

// Hex renders a frame for debug logs.
func Hex(buf []byte) string {
	return hex.EncodeToString(buf)
}
