package v1

const (
	DeviceTypeDobiss   = "dobiss"
	DeviceTypeDantherm = "danthermHcv5"
)
