package v1

type DeviceType interface {
	GetDeviceType() string
}

type DeviceMeta struct {
	PublishMeta
	Name       string `json:"name" binding:"required,min=1,max=64,excludesall=\u002F\u005C"`
	DeviceCode string `json:"deviceCode" binding:"required,min=1,max=32,excludesall=\u002F\u005C"`
	DeviceType string `json:"deviceType" binding:"required,min=1,max=32,excludesall=\u002F\u005C"`
}

type PublishMeta struct {
	Topic string `json:"topic"`
}

func (d *DeviceMeta) GetDeviceType() string {
	return d.DeviceType
}

// Connection is shared by every polled device.
type Connection struct {
	Host            string `json:"host" binding:"required,min=1,max=253"`
	Port            int    `json:"port,omitempty" binding:"gte=0,lte=65535"` // 0 selects the protocol default
	PollingInterval int    `json:"pollingInterval" binding:"required,gte=1"` // seconds
}
