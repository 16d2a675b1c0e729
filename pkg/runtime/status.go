package runtime

type CollectStatus int8

const (
	Collecting CollectStatus = iota
	CollectingError
	Unconnected
	Stopped
	EmptyVariable
	Error
)

var CollectStatusToString = map[CollectStatus]string{
	Collecting:      "collecting",
	CollectingError: "collectingError",
	Unconnected:     "unconnected",
	Stopped:         "stopped",
	EmptyVariable:   "emptyVariable",
	Error:           "error",
}

var StringToCollectStatus = map[string]CollectStatus{
	"collecting":      Collecting,
	"collectingError": CollectingError,
	"unconnected":     Unconnected,
	"stopped":         Stopped,
	"emptyVariable":   EmptyVariable,
	"error":           Error,
}

type DeviceStatusCh int8

const (
	Start DeviceStatusCh = iota
	Stop
	Restart
)

var DeviceStatusChToString = map[DeviceStatusCh]string{
	Start:   "start",
	Stop:    "stop",
	Restart: "restart",
}

var StringToDeviceStatusCh = map[string]DeviceStatusCh{
	"start":   Start,
	"stop":    Stop,
	"restart": Restart,
}
