package v1

type DanthermDevice struct {
	DeviceMeta
	Connection
	UnitId        *uint8 `json:"unitId,omitempty"` // defaults to 1
	Simulate      bool   `json:"simulate,omitempty"`
	ConfirmWrites bool   `json:"confirmWrites,omitempty"`
}
