package runtime

import (
	"domogateway/pkg/runtime"
)

var _ runtime.Device = (*DanthermDevice)(nil)

const DefaultUnitId = 1

type DanthermDevice struct {
	runtime.DeviceMeta
	Host            string `json:"host"`
	Port            int    `json:"port,omitempty"`
	UnitId          uint8  `json:"unitId"`
	PollingInterval int    `json:"pollingInterval"` // seconds
	Simulate        bool   `json:"simulate,omitempty"`
	ConfirmWrites   bool   `json:"confirmWrites,omitempty"`
	SerialNumber    string `json:"serialNumber,omitempty"` // recorded by the setup probe

	channelMap map[string]runtime.Channel
}

func (d *DanthermDevice) IndexDevice() {
	d.channelMap = make(map[string]runtime.Channel, len(RegisterMap))
	for _, r := range RegisterMap {
		d.channelMap[r.ChannelId] = r.Channel()
	}
}

func (d *DanthermDevice) GetChannels() []runtime.Channel {
	channels := make([]runtime.Channel, 0, len(RegisterMap))
	for _, r := range RegisterMap {
		channels = append(channels, r.Channel())
	}
	return channels
}

func (d *DanthermDevice) GetChannel(id string) (runtime.Channel, bool) {
	if d.channelMap == nil {
		d.IndexDevice()
	}
	ch, ok := d.channelMap[id]
	return ch, ok
}

func (d *DanthermDevice) DeepCopyObject() runtime.RunObject {
	copied := *d
	copied.IndexDevice()
	return &copied
}
