package runtime

import (
	"fmt"

	"domogateway/pkg/runtime/constant"
)

// Module is one relay or dimmer bank behind a gateway. Channels are
// indexed 1..Channels().
type Module interface {
	Name() string
	Kind() ModuleKind
	Address() int
	Enabled() bool
	Channels() int
	ChannelId(index int) string
	// MaxValue is the upper bound of a channel value, the lower bound is 0.
	MaxValue() int
	DecodeStatus(buf []byte) ([]int, error)
	EncodeCommand(index int, value int) (header []byte, payload []byte, err error)
}

var (
	_ Module = (*Relay)(nil)
	_ Module = (*Dimmer)(nil)
)

type base struct {
	name    string
	address int
}

func (b *base) Name() string { return b.name }

func (b *base) Address() int { return b.address }

// Enabled is false for addresses below 1, the module is kept but never polled.
func (b *base) Enabled() bool { return b.address >= 1 }

func (b *base) channelId(index int) string {
	return fmt.Sprintf("%s_channel%d", b.name, index)
}

func checkIndex(m Module, index int) error {
	if index < 1 || index > m.Channels() {
		return fmt.Errorf("%s channel %d out of range 1..%d", m.Name(), index, m.Channels())
	}
	return nil
}

type Relay struct {
	base
}

func NewRelay(name string, address int) *Relay {
	return &Relay{base{name: name, address: address}}
}

func (r *Relay) Kind() ModuleKind { return KindRelay }

func (r *Relay) Channels() int { return RelayChannels }

func (r *Relay) ChannelId(index int) string { return r.channelId(index) }

func (r *Relay) MaxValue() int { return 1 }

// DecodeStatus maps the status bytes to 0/1, only 1 means on.
func (r *Relay) DecodeStatus(buf []byte) ([]int, error) {
	raw, err := DecodeStatusResponse(buf, RelayChannels)
	if err != nil {
		return nil, err
	}
	values := make([]int, len(raw))
	for i, b := range raw {
		if b == 1 {
			values[i] = 1
		}
	}
	return values, nil
}

func (r *Relay) EncodeCommand(index int, value int) ([]byte, []byte, error) {
	if err := checkIndex(r, index); err != nil {
		return nil, nil, err
	}
	if value != 0 && value != 1 {
		return nil, nil, fmt.Errorf("relay value %d, want 0 or 1", value)
	}
	return EncodeCommandHeader(KindRelay, r.address), EncodeCommandPayload(r.address, index, byte(value), relayAux), nil
}

type Dimmer struct {
	base
}

func NewDimmer(name string, address int) *Dimmer {
	return &Dimmer{base{name: name, address: address}}
}

func (d *Dimmer) Kind() ModuleKind { return KindDimmer }

func (d *Dimmer) Channels() int { return DimmerChannels }

func (d *Dimmer) ChannelId(index int) string { return d.channelId(index) }

func (d *Dimmer) MaxValue() int { return dimmerLevelMax }

func (d *Dimmer) DecodeStatus(buf []byte) ([]int, error) {
	raw, err := DecodeStatusResponse(buf, DimmerChannels)
	if err != nil {
		return nil, err
	}
	values := make([]int, len(raw))
	for i, b := range raw {
		if int(b) > dimmerLevelMax {
			return nil, constant.NewProtocolError("%s channel %d level %d above %d", d.name, i+1, b, dimmerLevelMax)
		}
		values[i] = int(b)
	}
	return values, nil
}

// EncodeCommand sets the level in the aux byte, the value byte is always 1.
func (d *Dimmer) EncodeCommand(index int, value int) ([]byte, []byte, error) {
	if err := checkIndex(d, index); err != nil {
		return nil, nil, err
	}
	if value < 0 || value > dimmerLevelMax {
		return nil, nil, fmt.Errorf("dimmer level %d out of range 0..%d", value, dimmerLevelMax)
	}
	return EncodeCommandHeader(KindDimmer, d.address), EncodeCommandPayload(d.address, index, 1, byte(value)), nil
}

// NewModule builds a module of kind.
func NewModule(kind ModuleKind, name string, address int) (Module, error) {
	switch kind {
	case KindRelay:
		return NewRelay(name, address), nil
	case KindDimmer:
		return NewDimmer(name, address), nil
	default:
		return nil, &constant.ConfigurationError{Field: "modules.kind", Reason: fmt.Sprintf("unsupported module kind %q", kind)}
	}
}
