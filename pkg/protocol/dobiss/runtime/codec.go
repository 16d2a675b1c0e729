package runtime

import (
	"domogateway/pkg/runtime/constant"
)

func header(opcode, typeOrSync, moduleAddress, b6, b7, b8 byte) []byte {
	return []byte{
		frameSync, opcode, typeOrSync, moduleAddress,
		0x00, 0x00, b6, b7, b8,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		frameSync,
	}
}

// EncodeStatusQuery asks a module for the state of all its channels.
func EncodeStatusQuery(moduleAddress int) []byte {
	return header(OpcodeStatus, 0xFF, byte(moduleAddress), 0x00, 0x01, 0x00)
}

// EncodeCommandHeader announces a command payload for the module.
func EncodeCommandHeader(kind ModuleKind, moduleAddress int) []byte {
	commandType := byte(relayCommandType)
	if kind == KindDimmer {
		commandType = dimmerCommandType
	}
	return header(OpcodeCommand, commandType, byte(moduleAddress), 0x08, 0x01, 0x08)
}

// EncodeCommandPayload addresses channelIndex (1 based) of the module.
func EncodeCommandPayload(moduleAddress int, channelIndex int, value byte, aux byte) []byte {
	return []byte{byte(moduleAddress), byte(channelIndex - 1), value, 0xFF, 0xFF, aux, 0xFF, 0xFF}
}

// DecodeStatusResponse returns one raw byte per channel.
func DecodeStatusResponse(buf []byte, channels int) ([]byte, error) {
	if len(buf) < StatusOffset+channels {
		return nil, constant.NewProtocolError("status response of %d bytes, need %d", len(buf), StatusOffset+channels)
	}
	out := make([]byte, channels)
	copy(out, buf[StatusOffset:StatusOffset+channels])
	return out, nil
}
