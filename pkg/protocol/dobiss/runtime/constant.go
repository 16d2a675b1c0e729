package runtime

const (
	frameSync = 0xAF

	OpcodeStatus  = 0x01
	OpcodeCommand = 0x02

	HeaderLength  = 16
	PayloadLength = 8

	// channel i of a module is reported at byte StatusOffset+i
	StatusOffset         = 32
	StatusResponseLength = 128
	HeaderAckLength      = 32
	CommandAckLength     = 64

	RelayChannels  = 12
	DimmerChannels = 4

	relayCommandType  = 0x04
	dimmerCommandType = 0xFF
	relayAux          = 0x64
	dimmerLevelMax    = 100
)

type ModuleKind string

const (
	KindRelay  ModuleKind = "relay"
	KindDimmer ModuleKind = "dimmer"
)
