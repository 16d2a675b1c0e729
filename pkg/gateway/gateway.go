package gateway

import "domogateway/pkg/runtime"

type GatewayMeta struct {
	Secret string `json:"secret"`
	runtime.ObjectMeta
}

type ResponseModel struct {
	Cpus  interface{} `json:"cpus,omitempty"`
	Mem   interface{} `json:"mem,omitempty"`
	Disks interface{} `json:"disk,omitempty"`
}

type CpuUsageInfo struct {
	Cores       int    `json:"cores"`
	UsedPercent string `json:"usedPercent"`
}

type MemUsageInfo struct {
	Total       string `json:"total"`
	Used        string `json:"used"`
	UsedPercent string `json:"usedPercent"`
}

type DiskUsageInfo struct {
	Path        string `json:"path"`
	Total       string `json:"total"`
	Used        string `json:"used"`
	UsedPercent string `json:"usedPercent"`
}

const defaultGatewayName = "domogateway"
