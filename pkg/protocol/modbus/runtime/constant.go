package runtime

import "errors"

type FunctionCode uint8

const (
	ReadHoldRegister      FunctionCode = 3
	WriteMultipleRegister FunctionCode = 16
)

const (
	DefaultUnitId = 1

	// MBAP header: transaction id(2) + protocol id(2) + length(2) + unit id(1)
	MbapHeaderLength = 7
	// PerRequestMaxRegister registers per FC03 request (253 byte PDU)
	PerRequestMaxRegister = 125
	maxAduLength          = 260
)

var (
	ErrMessageTransaction       = errors.New("modbus transaction id not match")
	ErrMessageUnit              = errors.New("modbus unit id not match")
	ErrMessageDataLengthShort   = errors.New("modbus message data length not enough")
	ErrMessageFunctionCodeError = errors.New("modbus exception response")
)

var exceptionText = map[uint8]string{
	1: "illegal function",
	2: "illegal data address",
	3: "illegal data value",
	4: "server device failure",
	6: "server device busy",
}
