package dobiss

import (
	"testing"

	dobiss "domogateway/pkg/protocol/dobiss/runtime"
	"domogateway/pkg/runtime"
	v1 "domogateway/pkg/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func newRequest(modules ...*v1.DobissModule) *v1.DobissDevice {
	return &v1.DobissDevice{
		DeviceMeta: v1.DeviceMeta{Name: "living", DeviceCode: "dobiss-1", DeviceType: v1.DeviceTypeDobiss},
		Connection: v1.Connection{Host: "192.168.1.30", PollingInterval: 1},
		Modules:    modules,
	}
}

func TestCreateDeviceNamesModules(t *testing.T) {
	m := &DobissDeviceManager{}
	d, err := m.CreateDevice(newRequest(
		&v1.DobissModule{Kind: "relay", Address: intPtr(5)},
		&v1.DobissModule{Kind: "dimmer", Address: intPtr(2)},
		&v1.DobissModule{Kind: "relay", Address: intPtr(0)},
	))
	require.NoError(t, err)

	device := d.(*dobiss.DobissDevice)
	assert.NotEmpty(t, device.ID)
	assert.NotEmpty(t, device.Version)
	assert.Equal(t, runtime.CollectStatusToString[runtime.Stopped], device.CollectStatus)
	require.Len(t, device.Modules, 3)
	assert.Equal(t, "relay01", device.Modules[0].Name)
	assert.Equal(t, "dimmer01", device.Modules[1].Name)
	assert.Equal(t, "relay02", device.Modules[2].Name)

	// the disabled relay keeps its configuration but exposes no channel
	assert.Len(t, device.GetChannels(), dobiss.RelayChannels+dobiss.DimmerChannels)
	_, ok := device.GetChannel("relay02_channel1")
	assert.False(t, ok)
	ch, ok := device.GetChannel("dimmer01_channel4")
	require.True(t, ok)
	assert.Equal(t, 100, ch.Max)
}

func TestCreateDeviceRejectsInvalidModules(t *testing.T) {
	m := &DobissDeviceManager{}
	_, err := m.CreateDevice(newRequest(
		&v1.DobissModule{Name: "hall", Kind: "relay", Address: intPtr(5)},
		&v1.DobissModule{Name: "hall", Kind: "shutter", Address: intPtr(300)},
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "modules[1].name")
	assert.Contains(t, err.Error(), "modules[1].kind")
	assert.Contains(t, err.Error(), "modules[1].address")
}

func TestUpdateDeviceReplacesModules(t *testing.T) {
	m := &DobissDeviceManager{}
	d, err := m.CreateDevice(newRequest(&v1.DobissModule{Kind: "relay", Address: intPtr(5)}))
	require.NoError(t, err)

	req := newRequest(
		&v1.DobissModule{Kind: "dimmer", Address: intPtr(2)},
		&v1.DobissModule{Kind: "relay", Address: intPtr(5)},
	)
	req.PollingInterval = 3
	copied := d.DeepCopyObject().(runtime.Device)
	require.NoError(t, m.UpdateValidation(req, copied))
	updated, err := m.UpdateDevice(d.GetID(), req, copied)
	require.NoError(t, err)

	device := updated.(*dobiss.DobissDevice)
	assert.Equal(t, 3, device.PollingInterval)
	assert.Equal(t, "dimmer01", device.Modules[0].Name)
	assert.Equal(t, "dimmer01_channel1", device.GetChannels()[0].Id)
	// the original record is untouched
	assert.Len(t, d.(*dobiss.DobissDevice).Modules, 1)

	req.DeviceType = v1.DeviceTypeDantherm
	assert.Error(t, m.UpdateValidation(req, copied))
}
