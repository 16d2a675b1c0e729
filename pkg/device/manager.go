package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"domogateway/pkg/apis"
	"domogateway/pkg/apis/response"
	"domogateway/pkg/endpoint"
	"domogateway/pkg/generic"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"domogateway/pkg/transport"
	v1 "domogateway/pkg/v1"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

type Option func(*Manager)

func WithDeviceManager(deviceType string, dm DeviceManager) Option {
	return func(m *Manager) {
		m.deviceManager[deviceType] = dm
	}
}

func WithNewBroker(deviceType string, nb runtime.NewBroker) Option {
	return func(m *Manager) {
		m.newBrokers[deviceType] = nb
	}
}

func WithLockRegistry(locks *endpoint.LockRegistry) Option {
	return func(m *Manager) {
		m.locks = locks
	}
}

func WithTransport(tc transport.Client) Option {
	return func(m *Manager) {
		m.transport = tc
	}
}

func WithHeartBeatInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.heartBeatInterval = d
	}
}

// WithMaxConsecutiveFailures sets after how many failed ticks of every
// source a device is reported as collectingError. 0 disables the check.
func WithMaxConsecutiveFailures(n int) Option {
	return func(m *Manager) {
		m.maxConsecutiveFailures = n
	}
}

func WithCloser(closer runtime.LabeledCloser) Option {
	return func(m *Manager) {
		m.closers = append(m.closers, closer)
	}
}

type deviceStatus struct {
	id     string
	status string
}

type Manager struct {
	publisher Publisher
	// lifecycle serialises starting and stopping collection. mu guards
	// brokers and the fields of the device records.
	lifecycle              *sync.Mutex
	mu                     *sync.Mutex
	deviceManager          map[string]DeviceManager
	newBrokers             map[string]runtime.NewBroker
	devices                *sync.Map
	heartBeatDevices       *sync.Map
	store                  *generic.Store
	brokers                map[string]runtime.Broker
	stopCh                 <-chan struct{}
	deviceStatusCh         chan deviceStatus
	locks                  *endpoint.LockRegistry
	transport              transport.Client
	heartBeatInterval      time.Duration
	maxConsecutiveFailures int
	closers                []runtime.LabeledCloser
}

func NewManager(store *generic.Store, publisher Publisher, stop <-chan struct{}, opts ...Option) *Manager {
	m := &Manager{
		publisher:              publisher,
		lifecycle:              &sync.Mutex{},
		mu:                     &sync.Mutex{},
		deviceManager:          make(map[string]DeviceManager, len(DeviceManagers)),
		newBrokers:             make(map[string]runtime.NewBroker, len(generic.DeviceTypeBrokerMap)),
		devices:                &sync.Map{},
		heartBeatDevices:       &sync.Map{},
		store:                  store,
		brokers:                make(map[string]runtime.Broker),
		stopCh:                 stop,
		deviceStatusCh:         make(chan deviceStatus),
		locks:                  endpoint.Default(),
		heartBeatInterval:      defaultHeartBeatInterval,
		maxConsecutiveFailures: defaultMaxConsecutiveFailures,
	}
	for dt, dm := range DeviceManagers {
		m.deviceManager[dt] = dm
	}
	for dt, nb := range generic.DeviceTypeBrokerMap {
		m.newBrokers[dt] = nb
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init reloads the stored devices, starts their collection and the
// background loops.
func (m *Manager) Init() {
	devices, _ := m.store.LoadResource()
	for _, object := range devices {
		m.devices.Store(object.GetID(), object)
	}
	for _, object := range devices {
		m.lifecycle.Lock()
		if err := m.readyCollect(object); err != nil && !errors.Is(err, constant.ErrConnectDevice) {
			klog.V(2).InfoS("Failed to start process collect device data", "deviceId", object.GetID(), "err", err)
		}
		m.lifecycle.Unlock()
	}

	go wait.Until(m.heartBeatDetection, m.heartBeatInterval, m.stopCh)
	go m.listeningDeviceStatusCh()
}

func (m *Manager) CreateDevice(object v1.DeviceType) (runtime.Device, error) {
	dm, ok := m.deviceManager[object.GetDeviceType()]
	if !ok {
		return nil, response.ErrDeviceTypeUnSupported(object.GetDeviceType())
	}
	device, err := dm.CreateDevice(object)
	if err != nil {
		klog.V(2).InfoS("Failed to create device", "error", err)
		return nil, response.ErrInvalidDevice(err)
	}

	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	created, err := m.store.Create(device)
	if err != nil {
		klog.V(2).InfoS("Failed to store device", "error", err)
		return nil, err
	}
	m.devices.Store(created.GetID(), created)

	if err = m.readyCollect(created); err != nil {
		switch {
		case errors.Is(err, constant.ErrConnectDevice):
		case errors.Is(err, constant.ErrConfiguration):
			m.devices.Delete(created.GetID())
			if _, err := m.store.Delete(created); err != nil {
				klog.V(2).InfoS("Failed to delete device", "deviceId", created.GetID(), "err", err)
			}
			return nil, response.ErrInvalidDevice(err)
		default:
			klog.V(2).InfoS("Failed to start process collect device data", "deviceId", created.GetID(), "err", err)
		}
	}

	return m.copyDevice(created.GetID(), true)
}

func (m *Manager) DeleteDevice(id string, version string) (runtime.Device, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	device, err := m.loadDevice(id)
	if err != nil {
		return nil, err
	}
	if device.GetVersion() != version {
		return nil, apis.ErrMismatch
	}

	d, err := m.deviceManager[device.GetDeviceType()].DeleteDevice(device)
	if err != nil {
		klog.V(2).InfoS("Failed to delete device", "error", err)
		return nil, err
	}
	if _, err := m.store.Delete(d); err != nil {
		klog.V(2).InfoS("Failed to delete device", "deviceId", id, "err", err)
		return nil, err
	}

	m.cancelCollect(device)
	m.devices.Delete(id)
	klog.V(2).InfoS("Deleted device", "deviceId", id)
	return m.foldDevice(device), nil
}

// UpdateDeviceById replaces the configuration of a device and restarts its
// collection unless it was stopped.
func (m *Manager) UpdateDeviceById(id string, version string, newObj v1.DeviceType) (runtime.Device, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	d, err := m.loadDevice(id)
	if err != nil {
		return nil, err
	}
	if version != d.GetVersion() {
		return nil, apis.ErrMismatch
	}

	m.mu.Lock()
	cd := d.DeepCopyObject().(runtime.Device)
	_, running := m.brokers[id]
	wasStopped := d.GetCollectStatus() == runtime.CollectStatusToString[runtime.Stopped]
	m.mu.Unlock()

	dm := m.deviceManager[d.GetDeviceType()]
	if err = dm.UpdateValidation(newObj, cd); err != nil {
		return nil, response.ErrInvalidDevice(err)
	}
	device, err := dm.UpdateDevice(id, newObj, cd)
	if err != nil {
		klog.V(2).InfoS("Failed to update device", "error", err)
		return nil, response.ErrInvalidDevice(err)
	}

	updated, err := m.store.Update(device)
	if err != nil {
		klog.V(2).InfoS("Failed to update device", "error", err)
		return nil, err
	}

	m.cancelCollect(d)
	updated.SetCollectStatus(runtime.CollectStatusToString[runtime.Stopped])
	m.devices.Store(id, updated)
	if running || !wasStopped {
		if err := m.readyCollect(updated); err != nil && !errors.Is(err, constant.ErrConnectDevice) {
			klog.V(2).InfoS("Failed to start process collect device data", "deviceId", id, "err", err)
		}
	}

	return m.copyDevice(id, true)
}

func (m *Manager) ListDevices(filter *runtime.DeviceFilter, exploded bool) ([]runtime.Device, error) {
	rds := make([]runtime.Device, 0)
	predicates := runtime.ParseTypeFilter(filter)

	byModTime := func(d1, d2 runtime.Device) bool { return d1.GetModTime().Before(d2.GetModTime()) }
	sorter := runtime.ByDevice(byModTime)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices.Range(func(key, value interface{}) bool {
		v := value.(runtime.Device)
		for _, p := range predicates {
			if !p(v) {
				return true
			}
		}
		if exploded {
			rds = sorter.Insert(rds, v.DeepCopyObject().(runtime.Device))
		} else {
			rds = sorter.Insert(rds, m.foldDevice(v))
		}
		return true
	})

	return rds, nil
}

func (m *Manager) GetDeviceById(id string, exploded bool) (runtime.Device, error) {
	return m.copyDevice(id, exploded)
}

// SwitchDeviceStatus queues a start, stop or restart of the collection.
func (m *Manager) SwitchDeviceStatus(id string, status string) error {
	if _, err := m.loadDevice(id); err != nil {
		klog.V(2).InfoS("Failed to find device", "deviceId", id)
		return err
	}
	if _, ok := runtime.StringToDeviceStatusCh[status]; !ok {
		klog.V(2).InfoS("Unsupported device status", "status", status)
		return response.ErrDeviceOperatorUnSupported(status)
	}
	select {
	case m.deviceStatusCh <- deviceStatus{id: id, status: status}:
		return nil
	case <-m.stopCh:
		return errShuttingDown
	}
}

// HandleCommands executes the commands of a device in order. Each item maps
// channel ids to commands; a channel may appear once per request.
func (m *Manager) HandleCommands(ctx context.Context, id string, commands []map[string]interface{}) ([]runtime.CommandResult, error) {
	if _, err := m.loadDevice(id); err != nil {
		klog.V(2).InfoS("Failed to find device", "deviceId", id)
		return nil, err
	}

	type command struct {
		channelId string
		cmd       interface{}
	}
	errs := &response.MultiError{}
	seen := make(map[string]struct{})
	ordered := make([]command, 0, len(commands))
	for _, item := range commands {
		keys := make([]string, 0, len(item))
		for k := range item {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, exist := seen[k]; exist {
				errs.Add(response.ErrResourceExists(k))
				continue
			}
			seen[k] = struct{}{}
			ordered = append(ordered, command{channelId: k, cmd: item[k]})
		}
	}
	if errs.Len() > 0 {
		return nil, errs
	}
	if len(ordered) == 0 {
		return nil, response.NewMultiError(response.ErrLegalActionNotFound)
	}

	m.mu.Lock()
	broker, ok := m.brokers[id]
	m.mu.Unlock()
	if !ok {
		klog.V(2).InfoS("Failed to connect device", "deviceId", id)
		return nil, response.NewMultiError(response.ErrDeviceNotConnect(id))
	}

	results := make([]runtime.CommandResult, 0, len(ordered))
	for _, c := range ordered {
		r := broker.HandleCommand(ctx, c.channelId, c.cmd)
		if r.Err != nil {
			r.Error = commandError(r)
		}
		klog.V(3).InfoS("Handled command", "deviceId", id, "channelId", c.channelId, "status", r.Status)
		results = append(results, r)
	}
	return results, nil
}

// Channels returns the cached values of a device, empty when it is not
// collecting.
func (m *Manager) Channels(id string) ([]runtime.ChannelValue, error) {
	if _, err := m.loadDevice(id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	broker, ok := m.brokers[id]
	m.mu.Unlock()
	if !ok {
		return []runtime.ChannelValue{}, nil
	}
	return broker.Snapshot(), nil
}

func (m *Manager) Shutdown(ctx context.Context) error {
	m.lifecycle.Lock()
	m.mu.Lock()
	brokers := m.brokers
	m.brokers = make(map[string]runtime.Broker)
	m.mu.Unlock()
	for id, b := range brokers {
		b.Destroy(ctx)
		klog.V(2).InfoS("Stopped collect", "deviceId", id)
	}
	m.lifecycle.Unlock()

	var errs []string
	for i := len(m.closers); i > 0; i-- {
		lc := m.closers[i-1]
		if err := lc.Closer(ctx); err != nil {
			klog.V(2).InfoS("Failed to stopped Dependencies service", "service", lc.Label)
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("Failed to shutdown server: [%s]\n", strings.Join(errs, ","))
	}
	return nil
}

func (m *Manager) loadDevice(id string) (runtime.Device, error) {
	d, isExist := m.devices.Load(id)
	if !isExist {
		return nil, os.ErrNotExist
	}
	return d.(runtime.Device), nil
}

func (m *Manager) copyDevice(id string, exploded bool) (runtime.Device, error) {
	device, err := m.loadDevice(id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !exploded {
		return m.foldDevice(device), nil
	}
	return device.DeepCopyObject().(runtime.Device), nil
}

func (m *Manager) setCollectStatus(d runtime.Device, status runtime.CollectStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.SetCollectStatus(runtime.CollectStatusToString[status])
}

// cancelCollect stops the broker of a device and waits for it. Callers hold
// lifecycle.
func (m *Manager) cancelCollect(obj runtime.Device) {
	m.heartBeatDevices.Delete(obj.GetID())

	m.mu.Lock()
	broker, ok := m.brokers[obj.GetID()]
	delete(m.brokers, obj.GetID())
	obj.SetCollectStatus(runtime.CollectStatusToString[runtime.Stopped])
	m.mu.Unlock()

	if ok {
		broker.Destroy(context.Background())
		klog.V(2).InfoS("Stopped collect", "deviceId", obj.GetID())
	}
}

// readyCollect sets up the broker of a device and starts polling. The broker
// works on a copy of the record, which replaces the stored one once the
// setup succeeded. Callers hold lifecycle.
func (m *Manager) readyCollect(obj runtime.Device) error {
	id := obj.GetID()
	newBroker, ok := m.newBrokers[obj.GetDeviceType()]
	if !ok {
		m.setCollectStatus(obj, runtime.Error)
		return constant.ErrDeviceType
	}

	m.mu.Lock()
	d := obj.DeepCopyObject().(runtime.Device)
	m.mu.Unlock()

	topic := d.GetTopic()
	if len(topic) == 0 {
		topic = m.publisher.DataTopic(id)
		d.SetTopic(topic)
	}

	broker, err := newBroker(d, runtime.BrokerOptions{
		Publish:                m.publisher.PublishFunc(topic),
		OnFailing:              func(failing bool) { m.onFailing(id, failing) },
		Locks:                  m.locks,
		Transport:              m.transport,
		MaxConsecutiveFailures: m.maxConsecutiveFailures,
	})
	if err != nil {
		switch {
		case errors.Is(err, constant.ErrConnectDevice):
			m.setCollectStatus(obj, runtime.Unconnected)
			m.heartBeatDevices.Store(id, struct{}{})
			klog.V(2).InfoS("Failed to connect device", "deviceId", id, "err", err)
			return err
		case errors.Is(err, constant.ErrDeviceEmptyVariable):
			m.setCollectStatus(obj, runtime.EmptyVariable)
			m.heartBeatDevices.Delete(id)
			return nil
		default:
			m.setCollectStatus(obj, runtime.Error)
			m.heartBeatDevices.Delete(id)
			return err
		}
	}

	m.mu.Lock()
	d.SetCollectStatus(runtime.CollectStatusToString[runtime.Collecting])
	m.devices.Store(id, d)
	m.brokers[id] = broker
	m.mu.Unlock()
	m.heartBeatDevices.Delete(id)

	broker.Collect(context.Background())
	klog.V(2).InfoS("Succeed to collect data", "deviceId", id, "topic", topic)
	return nil
}

func (m *Manager) onFailing(id string, failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.brokers[id]; !ok {
		return
	}
	v, ok := m.devices.Load(id)
	if !ok {
		return
	}
	status := runtime.Collecting
	if failing {
		status = runtime.CollectingError
	}
	v.(runtime.Device).SetCollectStatus(runtime.CollectStatusToString[status])
	klog.V(2).InfoS("Switched collect status", "deviceId", id, "status", runtime.CollectStatusToString[status])
}

func (m *Manager) foldDevice(device runtime.Device) runtime.Device {
	return &runtime.DeviceMeta{
		ObjectMeta: runtime.ObjectMeta{
			Name:    device.GetName(),
			ID:      device.GetID(),
			Version: device.GetVersion(),
			ModTime: device.GetModTime(),
		},
		PublishMeta:   runtime.PublishMeta{Topic: device.GetTopic()},
		DeviceCode:    device.GetDeviceCode(),
		DeviceType:    device.GetDeviceType(),
		CollectStatus: device.GetCollectStatus(),
	}
}

// heartBeatDetection retries the setup of the devices that could not be
// reached.
func (m *Manager) heartBeatDetection() {
	ids := make([]string, 0)
	m.heartBeatDevices.Range(func(key, value interface{}) bool {
		ids = append(ids, key.(string))
		return true
	})
	for _, id := range ids {
		select {
		case <-m.stopCh:
			return
		default:
		}
		func() {
			m.lifecycle.Lock()
			defer m.lifecycle.Unlock()
			if _, pending := m.heartBeatDevices.Load(id); !pending {
				return
			}
			d, err := m.loadDevice(id)
			if err != nil {
				m.heartBeatDevices.Delete(id)
				return
			}
			if err := m.readyCollect(d); err == nil {
				klog.V(2).InfoS("Resumed collect", "deviceId", id)
			}
		}()
	}
}

func (m *Manager) listeningDeviceStatusCh() {
	for {
		select {
		case <-m.stopCh:
			return
		case ds := <-m.deviceStatusCh:
			m.lifecycle.Lock()
			if d, err := m.loadDevice(ds.id); err != nil {
				klog.V(2).InfoS("Failed to find device", "deviceId", ds.id)
			} else {
				m.switchDeviceStatus(d, ds.status)
			}
			m.lifecycle.Unlock()
		}
	}
}

func (m *Manager) switchDeviceStatus(device runtime.Device, status string) {
	m.mu.Lock()
	_, running := m.brokers[device.GetID()]
	m.mu.Unlock()

	switch runtime.StringToDeviceStatusCh[status] {
	case runtime.Start:
		if running {
			return
		}
		m.cancelCollect(device)
	case runtime.Restart:
		m.cancelCollect(device)
	case runtime.Stop:
		m.cancelCollect(device)
		return
	}
	if err := m.readyCollect(device); err != nil && !errors.Is(err, constant.ErrConnectDevice) {
		klog.V(2).InfoS("Failed to start process collect device data", "deviceId", device.GetID(), "err", err)
	}
}

// commandError phrases the error of a command result like the REST errors.
func commandError(r runtime.CommandResult) string {
	switch {
	case errors.Is(r.Err, constant.ErrChannelNotFound):
		return response.ErrResourceNotFound(r.ChannelId).Message
	case errors.Is(r.Err, constant.ErrChannelReadOnly):
		return response.ErrChannelReadOnly(r.ChannelId).Message
	case errors.Is(r.Err, constant.ErrInvalidCommand):
		return response.ErrInvalidCommand(r.ChannelId, r.Err).Message
	case errors.Is(r.Err, constant.ErrBusy):
		return response.ErrGatewayBusy(r.ChannelId, r.Err).Message
	default:
		return response.ErrCommandFailed(r.ChannelId, r.Err).Message
	}
}
