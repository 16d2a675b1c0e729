package device

import (
	"domogateway/pkg/runtime"
	v1 "domogateway/pkg/v1"
)

type DeviceManager interface {
	CreateDevice(deviceType v1.DeviceType) (runtime.Device, error)
	DeleteDevice(device runtime.Device) (runtime.Device, error)
	UpdateValidation(deviceType v1.DeviceType, device runtime.Device) error
	UpdateDevice(id string, deviceType v1.DeviceType, device runtime.Device) (runtime.Device, error)
}

// Publisher is the sink for the values a device publishes.
type Publisher interface {
	DataTopic(deviceId string) string
	PublishFunc(topic string) runtime.PublishFunc
}
