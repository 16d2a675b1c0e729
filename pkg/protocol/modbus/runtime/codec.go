package runtime

import (
	"fmt"
	"io"
	"math"

	"domogateway/pkg/runtime/constant"
	"domogateway/pkg/utils/binutil"
	"github.com/pkg/errors"
)

// 00 01 00 00 00 06 01 03 01 44 00 02
// 00 01  transaction id, incremented per request
// 00 00  protocol id, always 0 for modbus
// 00 06  length of the bytes that follow
// 01     unit id
// 03     function code, read holding registers
// 01 44  start register
// 00 02  register count

// EncodeReadRequest builds a read holding registers PDU.
func EncodeReadRequest(startRegister, count uint16) ([]byte, error) {
	if count == 0 || count > PerRequestMaxRegister {
		return nil, errors.Errorf("register count %d out of range 1..%d", count, PerRequestMaxRegister)
	}
	pdu := make([]byte, 5)
	pdu[0] = byte(ReadHoldRegister)
	binutil.WriteUint16(pdu[1:], startRegister)
	binutil.WriteUint16(pdu[3:], count)
	return pdu, nil
}

// EncodeWriteRequest builds a write multiple registers PDU writing the pair (value, 0).
func EncodeWriteRequest(register uint16, value uint16) []byte {
	pdu := make([]byte, 10)
	pdu[0] = byte(WriteMultipleRegister)
	binutil.WriteUint16(pdu[1:], register)
	binutil.WriteUint16(pdu[3:], 2)
	pdu[5] = 4
	binutil.WriteUint16(pdu[6:], value)
	binutil.WriteUint16(pdu[8:], 0)
	return pdu
}

// DecodeRegisters extracts count big-endian registers from a read response PDU.
func DecodeRegisters(pdu []byte, count int) ([]int16, error) {
	if err := checkException(pdu, ReadHoldRegister); err != nil {
		return nil, err
	}
	if len(pdu) < 2 {
		return nil, constant.NewProtocolError("read response of %d bytes", len(pdu))
	}
	byteCount := int(pdu[1])
	if byteCount != count*2 {
		return nil, constant.NewProtocolError("byte count %d, want %d", byteCount, count*2)
	}
	if len(pdu) < 2+byteCount {
		return nil, constant.NewProtocolError("%v: %d of %d data bytes", ErrMessageDataLengthShort, len(pdu)-2, byteCount)
	}
	regs := make([]int16, count)
	for i := range regs {
		regs[i] = binutil.ParseInt16(pdu[2+i*2:])
	}
	return regs, nil
}

// DecodeWriteResponse checks the echo of a write multiple registers request.
func DecodeWriteResponse(pdu []byte, register uint16, quantity uint16) error {
	if err := checkException(pdu, WriteMultipleRegister); err != nil {
		return err
	}
	if len(pdu) < 5 {
		return constant.NewProtocolError("write response of %d bytes", len(pdu))
	}
	if start := binutil.ParseUint16(pdu[1:]); start != register {
		return constant.NewProtocolError("write response register %d, want %d", start, register)
	}
	if q := binutil.ParseUint16(pdu[3:]); q != quantity {
		return constant.NewProtocolError("write response quantity %d, want %d", q, quantity)
	}
	return nil
}

func checkException(pdu []byte, fc FunctionCode) error {
	if len(pdu) == 0 {
		return constant.NewProtocolError("empty response")
	}
	if pdu[0]&0x80 > 0 {
		code := uint8(0)
		if len(pdu) > 1 {
			code = pdu[1]
		}
		return constant.NewProtocolError("%v: function %d code %d %s", ErrMessageFunctionCodeError, pdu[0]&0x7F, code, exceptionText[code])
	}
	if FunctionCode(pdu[0]) != fc {
		return constant.NewProtocolError("function code %d, want %d", pdu[0], fc)
	}
	return nil
}

// CombineToInt32 rebuilds an int32 sent low register first.
func CombineToInt32(low, high int16) int32 {
	return int32(high)<<16 | int32(uint16(low))
}

// SplitInt32 is the inverse of CombineToInt32.
func SplitInt32(v int32) (low, high int16) {
	return int16(uint16(v)), int16(uint16(uint32(v) >> 16))
}

// CombineToFloat32 reinterprets two registers, high order first, as an IEEE-754 float.
func CombineToFloat32(regA, regB int16) float32 {
	return math.Float32frombits(uint32(uint16(regA))<<16 | uint32(uint16(regB)))
}

// SplitFloat32 is the inverse of CombineToFloat32.
func SplitFloat32(f float32) (regA, regB int16) {
	bits := math.Float32bits(f)
	return int16(uint16(bits >> 16)), int16(uint16(bits))
}

// EncodeADU prefixes pdu with the MBAP header.
func EncodeADU(transactionId uint16, unitId uint8, pdu []byte) []byte {
	adu := make([]byte, MbapHeaderLength+len(pdu))
	binutil.WriteUint16(adu[0:], transactionId)
	binutil.WriteUint16(adu[2:], 0)
	binutil.WriteUint16(adu[4:], uint16(len(pdu)+1))
	adu[6] = unitId
	copy(adu[MbapHeaderLength:], pdu)
	return adu
}

// DecodeADU validates the MBAP header against the request and returns the PDU.
func DecodeADU(adu []byte, transactionId uint16, unitId uint8) ([]byte, error) {
	if len(adu) < MbapHeaderLength+1 {
		return nil, constant.NewProtocolError("%v: frame of %d bytes", ErrMessageDataLengthShort, len(adu))
	}
	if id := binutil.ParseUint16(adu); id != transactionId {
		return nil, constant.NewProtocolError("%v: got %d, want %d", ErrMessageTransaction, id, transactionId)
	}
	if proto := binutil.ParseUint16(adu[2:]); proto != 0 {
		return nil, constant.NewProtocolError("protocol id %d", proto)
	}
	length := int(binutil.ParseUint16(adu[4:]))
	if length+6 != len(adu) {
		return nil, constant.NewProtocolError("%v: header length %d, frame %d", ErrMessageDataLengthShort, length, len(adu))
	}
	if adu[6] != unitId {
		return nil, constant.NewProtocolError("%v: got %d, want %d", ErrMessageUnit, adu[6], unitId)
	}
	return adu[MbapHeaderLength:], nil
}

// ReadADU reads one MBAP framed response. A header announcing an impossible
// length is returned as is, DecodeADU rejects it.
func ReadADU(r io.Reader) ([]byte, error) {
	header := make([]byte, MbapHeaderLength)
	if n, err := io.ReadFull(r, header); err != nil {
		if n > 0 && err == io.ErrUnexpectedEOF {
			return header[:n], nil
		}
		return nil, err
	}
	length := int(binutil.ParseUint16(header[4:]))
	if length < 2 || length+6 > maxAduLength {
		return header, nil
	}
	adu := make([]byte, length+6)
	copy(adu, header)
	n, err := io.ReadFull(r, adu[MbapHeaderLength:])
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return adu[:MbapHeaderLength+n], nil
		}
		return nil, err
	}
	return adu, nil
}

func describe(pdu []byte) string {
	if len(pdu) < 5 {
		return fmt.Sprintf("fc=%d", pdu[0])
	}
	return fmt.Sprintf("fc=%d register=%d count=%d", pdu[0], binutil.ParseUint16(pdu[1:]), binutil.ParseUint16(pdu[3:]))
}
