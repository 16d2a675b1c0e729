package dantherm

import (
	"strconv"
	"strings"
	"time"

	dantherm "domogateway/pkg/protocol/dantherm/runtime"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"domogateway/pkg/utils/randutil"
	"domogateway/pkg/utils/uuidutil"
	v1 "domogateway/pkg/v1"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"
)

type DanthermDeviceManager struct {
}

func (m *DanthermDeviceManager) CreateDevice(deviceType v1.DeviceType) (runtime.Device, error) {
	danthermDevice, ok := deviceType.(*v1.DanthermDevice)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not dantherm")
		return nil, constant.ErrDeviceType
	}

	d := &dantherm.DanthermDevice{
		DeviceMeta: runtime.DeviceMeta{
			PublishMeta: runtime.PublishMeta{Topic: danthermDevice.Topic},
			ObjectMeta: runtime.ObjectMeta{
				Name:    danthermDevice.Name,
				ID:      uuidutil.UUID(),
				Version: strconv.FormatUint(randutil.Uint64n(), 10),
				ModTime: time.Now(),
			},
			DeviceCode:    danthermDevice.DeviceCode,
			DeviceType:    danthermDevice.DeviceType,
			CollectStatus: runtime.CollectStatusToString[runtime.Stopped],
		},
		Host:            strings.TrimSpace(danthermDevice.Host),
		Port:            danthermDevice.Port,
		UnitId:          unitId(danthermDevice.UnitId),
		PollingInterval: danthermDevice.PollingInterval,
		Simulate:        danthermDevice.Simulate,
		ConfirmWrites:   danthermDevice.ConfirmWrites,
	}
	d.IndexDevice()
	return d, nil
}

func (m *DanthermDeviceManager) DeleteDevice(device runtime.Device) (runtime.Device, error) {
	return &dantherm.DanthermDevice{DeviceMeta: runtime.DeviceMeta{
		ObjectMeta: runtime.ObjectMeta{ID: device.GetID(), Version: device.GetVersion()},
		DeviceType: device.GetDeviceType(),
		DeviceCode: device.GetDeviceCode(),
	}}, nil
}

func (m *DanthermDeviceManager) UpdateValidation(deviceType v1.DeviceType, device runtime.Device) error {
	danthermDevice, ok := deviceType.(*v1.DanthermDevice)
	if !ok {
		return constant.ErrDeviceType
	}
	var allErrs field.ErrorList
	if danthermDevice.DeviceType != device.GetDeviceType() {
		allErrs = append(allErrs, field.Forbidden(field.NewPath("deviceType"), "device type is immutable"))
	}
	return allErrs.ToAggregate()
}

func (m *DanthermDeviceManager) UpdateDevice(id string, deviceType v1.DeviceType, device runtime.Device) (runtime.Device, error) {
	danthermDevice, ok := deviceType.(*v1.DanthermDevice)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not dantherm")
		return nil, constant.ErrDeviceType
	}

	copyDevice, _ := device.(*dantherm.DanthermDevice)
	copyDevice.DeviceMeta.PublishMeta.Topic = danthermDevice.Topic
	copyDevice.DeviceMeta.ObjectMeta.Name = danthermDevice.Name
	copyDevice.DeviceMeta.ObjectMeta.ModTime = time.Now()
	copyDevice.DeviceMeta.DeviceCode = danthermDevice.DeviceCode
	copyDevice.Host = strings.TrimSpace(danthermDevice.Host)
	copyDevice.Port = danthermDevice.Port
	copyDevice.UnitId = unitId(danthermDevice.UnitId)
	copyDevice.PollingInterval = danthermDevice.PollingInterval
	copyDevice.Simulate = danthermDevice.Simulate
	copyDevice.ConfirmWrites = danthermDevice.ConfirmWrites
	return copyDevice, nil
}

func unitId(id *uint8) uint8 {
	if id == nil || *id == 0 {
		return dantherm.DefaultUnitId
	}
	return *id
}
