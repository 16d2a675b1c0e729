package v1

type DobissModule struct {
	Name    string `json:"name,omitempty" binding:"max=64,excludesall=\u002F\u005C"` // defaults to relay01, dimmer01, ...
	Kind    string `json:"kind" binding:"required,oneof=relay dimmer"`
	Address *int   `json:"address" binding:"required"` // < 1 disables the module
}

type DobissDevice struct {
	DeviceMeta
	Connection
	ConfirmWrites bool            `json:"confirmWrites,omitempty"`
	Modules       []*DobissModule `json:"modules" binding:"required,dive"`
}
