package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"domogateway/pkg/runtime"
	"domogateway/pkg/storage"
	"domogateway/pkg/utils/randutil"
	"domogateway/pkg/utils/uuidutil"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"k8s.io/klog/v2"
)

const cpuSampleInterval = 200 * time.Millisecond

type Option func(*Manager)

// WithStorePath sets the root of the store holding the gateway identity.
func WithStorePath(path string) Option {
	return func(m *Manager) {
		m.storePath = path
	}
}

type Manager struct {
	gatewayMeta *GatewayMeta
	storePath   string
	stopCh      <-chan struct{}
}

func NewGatewayManager(stop <-chan struct{}, opts ...Option) *Manager {
	m := &Manager{
		gatewayMeta: &GatewayMeta{},
		stopCh:      stop,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init loads the gateway identity, creating it on first start.
func (m *Manager) Init() error {
	client, err := storage.NewFsClient(m.storePath, storage.StoreGroupGateway)
	if err != nil {
		return err
	}

	gd, err := client.Get(storage.Meta)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		m.gatewayMeta = &GatewayMeta{
			Secret: "",
			ObjectMeta: runtime.ObjectMeta{
				Name:    defaultGatewayName,
				ID:      uuidutil.UUID(),
				Version: strconv.FormatUint(randutil.Uint64n(), 10),
				ModTime: time.Now(),
			},
		}
		klog.V(3).InfoS("Gateway information not exist,been created automatically", "gatewayId", m.gatewayMeta.ID)
		if _, err := client.Create(storage.Meta, m.gatewayMeta); err != nil {
			klog.V(2).InfoS("Failed to create gateway information", "err", err)
			return err
		}
		return nil
	}

	if err = json.NewDecoder(bytes.NewReader(gd.([]byte))).Decode(m.gatewayMeta); err != nil {
		klog.V(2).InfoS("Failed to unmarshal gateway information", "err", err)
		return err
	}
	return nil
}

func (m *Manager) GetGatewayMeta() (*GatewayMeta, error) {
	return m.gatewayMeta, nil
}

func (m *Manager) getGatewayCpu() (*CpuUsageInfo, error) {
	percent, err := cpu.Percent(cpuSampleInterval, false)
	if err != nil {
		klog.V(2).InfoS("Failed to get cpu usage", "err", err)
		return nil, err
	}
	cores, err := cpu.Counts(true)
	if err != nil {
		klog.V(2).InfoS("Failed to get cpu count", "err", err)
		return nil, err
	}
	info := &CpuUsageInfo{Cores: cores}
	if len(percent) > 0 {
		info.UsedPercent = formatPercent(percent[0])
	}
	return info, nil
}

func (m *Manager) getGatewayMem() (*MemUsageInfo, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		klog.V(2).InfoS("Failed to get memory usage", "err", err)
		return nil, err
	}
	return &MemUsageInfo{
		Total:       formatBytes(vm.Total),
		Used:        formatBytes(vm.Used),
		UsedPercent: formatPercent(vm.UsedPercent),
	}, nil
}

func (m *Manager) getGatewayDisk() ([]*DiskUsageInfo, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		klog.V(2).InfoS("Failed to get disk partitions", "err", err)
		return nil, err
	}
	disks := make([]*DiskUsageInfo, 0, len(partitions))
	for _, p := range partitions {
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil {
			klog.V(4).InfoS("Failed to get disk usage", "path", p.Mountpoint, "err", err)
			continue
		}
		disks = append(disks, &DiskUsageInfo{
			Path:        usage.Path,
			Total:       formatBytes(usage.Total),
			Used:        formatBytes(usage.Used),
			UsedPercent: formatPercent(usage.UsedPercent),
		})
	}
	return disks, nil
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%dB", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f%ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
