package device

import (
	"errors"
	"time"

	"domogateway/pkg/protocol/dantherm"
	"domogateway/pkg/protocol/dobiss"
	v1 "domogateway/pkg/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/sets"
)

var DeviceManagers = map[string]DeviceManager{
	v1.DeviceTypeDobiss:   &dobiss.DobissDeviceManager{},
	v1.DeviceTypeDantherm: &dantherm.DanthermDeviceManager{},
}

var patchTypes = sets.NewString(string(types.JSONPatchType), string(types.MergePatchType))

var errShuttingDown = errors.New("device manager is shutting down")

const (
	maxJSONPatchOperations        = 1000
	defaultHeartBeatInterval      = 15 * time.Second
	defaultMaxConsecutiveFailures = 5
)
