package generic

import (
	"domogateway/pkg/protocol/dantherm"
	danthermruntime "domogateway/pkg/protocol/dantherm/runtime"
	"domogateway/pkg/protocol/dobiss"
	dobissruntime "domogateway/pkg/protocol/dobiss/runtime"
	"domogateway/pkg/runtime"
	v1 "domogateway/pkg/v1"
)

var DeviceTypeMap = map[string]func() v1.DeviceType{
	v1.DeviceTypeDobiss:   func() v1.DeviceType { return &v1.DobissDevice{} },
	v1.DeviceTypeDantherm: func() v1.DeviceType { return &v1.DanthermDevice{} },
}

var DeviceTypeObjectMap = map[string]runtime.Device{
	v1.DeviceTypeDobiss:   &dobissruntime.DobissDevice{},
	v1.DeviceTypeDantherm: &danthermruntime.DanthermDevice{},
}

var DeviceTypeBrokerMap = map[string]runtime.NewBroker{
	v1.DeviceTypeDobiss:   dobiss.NewBroker,
	v1.DeviceTypeDantherm: dantherm.NewBroker,
}
