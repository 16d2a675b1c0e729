package runtime

import (
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
)

var _ runtime.Device = (*DobissDevice)(nil)

type ModuleConfig struct {
	Name    string     `json:"name"`
	Kind    ModuleKind `json:"kind"`
	Address int        `json:"address"` // < 1 disables the module
}

type DobissDevice struct {
	runtime.DeviceMeta
	Host            string          `json:"host"`
	Port            int             `json:"port,omitempty"`
	PollingInterval int             `json:"pollingInterval"` // seconds
	ConfirmWrites   bool            `json:"confirmWrites,omitempty"`
	Modules         []*ModuleConfig `json:"modules"`

	channels   []runtime.Channel
	channelMap map[string]runtime.Channel
}

// IndexDevice lists the channels of the enabled modules in module order.
func (d *DobissDevice) IndexDevice() {
	d.channels = d.channels[:0]
	d.channelMap = make(map[string]runtime.Channel)
	for _, mc := range d.Modules {
		m, err := NewModule(mc.Kind, mc.Name, mc.Address)
		if err != nil || !m.Enabled() {
			continue
		}
		for i := 1; i <= m.Channels(); i++ {
			ch := runtime.Channel{
				Id:         m.ChannelId(i),
				Kind:       constant.Discrete,
				AccessMode: constant.AccessModeReadWrite,
				Min:        0,
				Max:        m.MaxValue(),
			}
			d.channels = append(d.channels, ch)
			d.channelMap[ch.Id] = ch
		}
	}
}

func (d *DobissDevice) GetChannels() []runtime.Channel {
	if d.channelMap == nil {
		d.IndexDevice()
	}
	return d.channels
}

func (d *DobissDevice) GetChannel(id string) (runtime.Channel, bool) {
	if d.channelMap == nil {
		d.IndexDevice()
	}
	ch, ok := d.channelMap[id]
	return ch, ok
}

func (d *DobissDevice) DeepCopyObject() runtime.RunObject {
	copied := *d
	copied.Modules = make([]*ModuleConfig, 0, len(d.Modules))
	for _, m := range d.Modules {
		mc := *m
		copied.Modules = append(copied.Modules, &mc)
	}
	copied.channels = nil
	copied.channelMap = nil
	copied.IndexDevice()
	return &copied
}

// EnabledModules builds the modules that are polled, in configuration order.
func (d *DobissDevice) EnabledModules() ([]Module, error) {
	modules := make([]Module, 0, len(d.Modules))
	for _, mc := range d.Modules {
		m, err := NewModule(mc.Kind, mc.Name, mc.Address)
		if err != nil {
			return nil, err
		}
		if m.Enabled() {
			modules = append(modules, m)
		}
	}
	return modules, nil
}
