package runtime

import (
	"math"

	modbus "domogateway/pkg/protocol/modbus/runtime"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
)

// Decoding tells how the two registers of a quantity form a value.
type Decoding uint8

const (
	// Int32LowHigh holds the low word in the first register.
	Int32LowHigh Decoding = iota
	// Float32HighLow holds the high word of an IEEE-754 float in the first register.
	Float32HighLow
)

const (
	registersPerQuantity = 2

	SerialNumberRegister = 5
	SerialNumberCount    = 4
	BypassLeftRegister   = 85
	BypassRightRegister  = 87
)

const (
	FanSpeed        = "fan-speed"
	CurrentUnitMode = "current-unitmode"
	ActiveUnitMode  = "active-unitmode"
	FanRpm1         = "fan-rpm1"
	FanRpm2         = "fan-rpm2"
	Temperature1    = "temperature1"
	Temperature2    = "temperature2"
	Temperature3    = "temperature3"
	Temperature4    = "temperature4"
)

type Register struct {
	ChannelId  string
	Address    uint16
	Decoding   Decoding
	Kind       constant.ValueKind
	AccessMode constant.AccessMode
	Min        int
	Max        int
}

// RegisterMap lists the HCV5 holding registers in publish order.
var RegisterMap = []Register{
	{ChannelId: FanSpeed, Address: 324, Decoding: Int32LowHigh, Kind: constant.Discrete, AccessMode: constant.AccessModeReadWrite, Min: 0, Max: 4},
	{ChannelId: CurrentUnitMode, Address: 472, Decoding: Int32LowHigh, Kind: constant.Discrete, AccessMode: constant.AccessModeReadOnly},
	{ChannelId: ActiveUnitMode, Address: 168, Decoding: Int32LowHigh, Kind: constant.Discrete, AccessMode: constant.AccessModeReadWrite, Min: 0, Max: 15},
	{ChannelId: FanRpm1, Address: 101, Decoding: Int32LowHigh, Kind: constant.Continuous, AccessMode: constant.AccessModeReadOnly},
	{ChannelId: FanRpm2, Address: 103, Decoding: Int32LowHigh, Kind: constant.Continuous, AccessMode: constant.AccessModeReadOnly},
	{ChannelId: Temperature1, Address: 133, Decoding: Float32HighLow, Kind: constant.Continuous, AccessMode: constant.AccessModeReadOnly},
	{ChannelId: Temperature2, Address: 135, Decoding: Float32HighLow, Kind: constant.Continuous, AccessMode: constant.AccessModeReadOnly},
	{ChannelId: Temperature3, Address: 137, Decoding: Float32HighLow, Kind: constant.Continuous, AccessMode: constant.AccessModeReadOnly},
	{ChannelId: Temperature4, Address: 139, Decoding: Float32HighLow, Kind: constant.Continuous, AccessMode: constant.AccessModeReadOnly},
}

func (r Register) Count() uint16 { return registersPerQuantity }

func (r Register) Channel() runtime.Channel {
	return runtime.Channel{Id: r.ChannelId, Kind: r.Kind, AccessMode: r.AccessMode, Min: r.Min, Max: r.Max}
}

// Decode builds the value from the registers read at r.Address.
func (r Register) Decode(regs []int16) (float64, error) {
	if len(regs) < registersPerQuantity {
		return 0, constant.NewProtocolError("%s needs %d registers, got %d", r.ChannelId, registersPerQuantity, len(regs))
	}
	switch r.Decoding {
	case Float32HighLow:
		v := float64(modbus.CombineToFloat32(regs[0], regs[1]))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, constant.NewProtocolError("%s holds a non-finite float at register %d", r.ChannelId, r.Address)
		}
		return v, nil
	default:
		return float64(modbus.CombineToInt32(regs[0], regs[1])), nil
	}
}

// Encode is the inverse of Decode.
func (r Register) Encode(v float64) (int16, int16) {
	switch r.Decoding {
	case Float32HighLow:
		return modbus.SplitFloat32(float32(v))
	default:
		return modbus.SplitInt32(int32(v))
	}
}

func LookupRegister(channelId string) (Register, bool) {
	for _, r := range RegisterMap {
		if r.ChannelId == channelId {
			return r, true
		}
	}
	return Register{}, false
}

// SerialNumber joins the two int32 words of the serial number registers.
func SerialNumber(regs []int16) (uint64, error) {
	if len(regs) < SerialNumberCount {
		return 0, constant.NewProtocolError("serial number needs %d registers, got %d", SerialNumberCount, len(regs))
	}
	low := uint32(modbus.CombineToInt32(regs[0], regs[1]))
	high := uint32(modbus.CombineToInt32(regs[2], regs[3]))
	return uint64(high)<<32 | uint64(low), nil
}
