package dobiss

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	dobiss "domogateway/pkg/protocol/dobiss/runtime"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"domogateway/pkg/utils/differenceutil"
	"domogateway/pkg/utils/randutil"
	"domogateway/pkg/utils/uuidutil"
	v1 "domogateway/pkg/v1"
	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/klog/v2"
)

type DobissDeviceManager struct {
}

func (m *DobissDeviceManager) CreateDevice(deviceType v1.DeviceType) (runtime.Device, error) {
	dobissDevice, ok := deviceType.(*v1.DobissDevice)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not dobiss")
		return nil, constant.ErrDeviceType
	}

	modules := moduleConfigs(dobissDevice.Modules)
	if errs := validateModules(modules); len(errs) > 0 {
		return nil, errs.ToAggregate()
	}

	d := &dobiss.DobissDevice{
		DeviceMeta: runtime.DeviceMeta{
			PublishMeta: runtime.PublishMeta{Topic: dobissDevice.Topic},
			ObjectMeta: runtime.ObjectMeta{
				Name:    dobissDevice.Name,
				ID:      uuidutil.UUID(),
				Version: strconv.FormatUint(randutil.Uint64n(), 10),
				ModTime: time.Now(),
			},
			DeviceCode:    dobissDevice.DeviceCode,
			DeviceType:    dobissDevice.DeviceType,
			CollectStatus: runtime.CollectStatusToString[runtime.Stopped],
		},
		Host:            strings.TrimSpace(dobissDevice.Host),
		Port:            dobissDevice.Port,
		PollingInterval: dobissDevice.PollingInterval,
		ConfirmWrites:   dobissDevice.ConfirmWrites,
		Modules:         modules,
	}
	d.IndexDevice()
	return d, nil
}

func (m *DobissDeviceManager) DeleteDevice(device runtime.Device) (runtime.Device, error) {
	return &dobiss.DobissDevice{DeviceMeta: runtime.DeviceMeta{
		ObjectMeta: runtime.ObjectMeta{ID: device.GetID(), Version: device.GetVersion()},
		DeviceType: device.GetDeviceType(),
		DeviceCode: device.GetDeviceCode(),
	}}, nil
}

func (m *DobissDeviceManager) UpdateValidation(deviceType v1.DeviceType, device runtime.Device) error {
	dobissDevice, ok := deviceType.(*v1.DobissDevice)
	if !ok {
		return constant.ErrDeviceType
	}
	var allErrs field.ErrorList
	if dobissDevice.DeviceType != device.GetDeviceType() {
		allErrs = append(allErrs, field.Forbidden(field.NewPath("deviceType"), "device type is immutable"))
	}
	allErrs = append(allErrs, validateModules(moduleConfigs(dobissDevice.Modules))...)
	return allErrs.ToAggregate()
}

// UpdateDevice replaces the module list by the new one, keeping its order.
func (m *DobissDeviceManager) UpdateDevice(id string, deviceType v1.DeviceType, device runtime.Device) (runtime.Device, error) {
	dobissDevice, ok := deviceType.(*v1.DobissDevice)
	if !ok {
		klog.V(2).InfoS("Unsupported device,type not dobiss")
		return nil, constant.ErrDeviceType
	}

	copyDevice, _ := device.(*dobiss.DobissDevice)
	copyDevice.DeviceMeta.PublishMeta.Topic = dobissDevice.Topic
	copyDevice.DeviceMeta.ObjectMeta.Name = dobissDevice.Name
	copyDevice.DeviceMeta.ObjectMeta.ModTime = time.Now()
	copyDevice.DeviceMeta.DeviceCode = dobissDevice.DeviceCode
	copyDevice.Host = strings.TrimSpace(dobissDevice.Host)
	copyDevice.Port = dobissDevice.Port
	copyDevice.PollingInterval = dobissDevice.PollingInterval
	copyDevice.ConfirmWrites = dobissDevice.ConfirmWrites

	modules := moduleConfigs(dobissDevice.Modules)
	removed, _, added := differenceutil.DifferenceAndIntersectionObjects(copyDevice.Modules, modules,
		func(mc *dobiss.ModuleConfig) string { return mc.Name },
		func(mc *dobiss.ModuleConfig) string { return mc.Name })
	if len(removed) > 0 || len(added) > 0 {
		klog.V(2).InfoS("Updated dobiss modules", "deviceId", id, "removed", removed, "added", added)
	}
	copyDevice.Modules = modules
	copyDevice.IndexDevice()
	return copyDevice, nil
}

// moduleConfigs converts the request modules, naming unnamed ones after
// their kind and rank: relay01, relay02, dimmer01.
func moduleConfigs(modules []*v1.DobissModule) []*dobiss.ModuleConfig {
	ranks := make(map[string]int)
	mcs := make([]*dobiss.ModuleConfig, 0, len(modules))
	for _, vm := range modules {
		kind := strings.ToLower(strings.TrimSpace(vm.Kind))
		ranks[kind]++
		name := strings.TrimSpace(vm.Name)
		if len(name) == 0 {
			name = fmt.Sprintf("%s%02d", kind, ranks[kind])
		}
		address := 0
		if vm.Address != nil {
			address = *vm.Address
		}
		mcs = append(mcs, &dobiss.ModuleConfig{Name: name, Kind: dobiss.ModuleKind(kind), Address: address})
	}
	return mcs
}

func validateModules(modules []*dobiss.ModuleConfig) field.ErrorList {
	var allErrs field.ErrorList
	names := sets.NewString()
	for i, mc := range modules {
		path := field.NewPath("modules").Index(i)
		if names.Has(mc.Name) {
			allErrs = append(allErrs, field.Duplicate(path.Child("name"), mc.Name))
		}
		names.Insert(mc.Name)
		if mc.Kind != dobiss.KindRelay && mc.Kind != dobiss.KindDimmer {
			allErrs = append(allErrs, field.NotSupported(path.Child("kind"), mc.Kind, []string{string(dobiss.KindRelay), string(dobiss.KindDimmer)}))
		}
		if mc.Address > 0xFF {
			allErrs = append(allErrs, field.Invalid(path.Child("address"), mc.Address, "must fit in one byte"))
		}
	}
	return allErrs
}
