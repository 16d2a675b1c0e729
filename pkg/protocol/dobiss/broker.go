package dobiss

import (
	"context"
	"errors"
	"time"

	"domogateway/pkg/cache"
	"domogateway/pkg/endpoint"
	"domogateway/pkg/executor"
	"domogateway/pkg/poller"
	dobiss "domogateway/pkg/protocol/dobiss/runtime"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"k8s.io/klog/v2"
)

const DefaultInitialDelay = 500 * time.Millisecond

var _ runtime.Broker = (*DobissBroker)(nil)

type channelRef struct {
	module dobiss.Module
	index  int
}

// moduleSource polls one relay or dimmer module.
type moduleSource struct {
	module dobiss.Module
	client *dobiss.Client
	ids    []string
}

func (s *moduleSource) Name() string { return s.module.Name() }

func (s *moduleSource) Endpoint() endpoint.Endpoint { return s.client.Endpoint }

func (s *moduleSource) Channels() []string { return s.ids }

func (s *moduleSource) Read(ctx context.Context) ([]poller.Reading, error) {
	values, err := s.client.QueryStatus(ctx, s.module)
	if err != nil {
		return nil, err
	}
	readings := make([]poller.Reading, 0, len(values))
	for i, v := range values {
		readings = append(readings, poller.Reading{ChannelId: s.ids[i], Value: float64(v)})
	}
	return readings, nil
}

type DobissBroker struct {
	Device   *dobiss.DobissDevice
	client   *dobiss.Client
	modules  []dobiss.Module
	channels map[string]channelRef
	cache    *cache.ValueCache
	poller   *poller.Poller
	executor *executor.Executor
	publish  runtime.PublishFunc
}

func NewBroker(d runtime.Device, opts runtime.BrokerOptions) (runtime.Broker, error) {
	device, ok := d.(*dobiss.DobissDevice)
	if !ok {
		klog.V(2).InfoS("Failed to new dobiss broker,device type not supported")
		return nil, constant.ErrDeviceType
	}
	opts = opts.Complete()

	if err := runtime.ConfigurationError(runtime.ValidateConnection(device.Host, device.Port, device.PollingInterval)); err != nil {
		return nil, err
	}
	ep, err := endpoint.New(device.Host, device.Port, endpoint.DefaultDobissPort)
	if err != nil {
		return nil, err
	}
	modules, err := device.EnabledModules()
	if err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		klog.V(2).InfoS("Failed to collect from dobiss gateway,no enabled module", "deviceId", device.ID)
		return nil, constant.ErrDeviceEmptyVariable
	}

	broker := &DobissBroker{
		Device:   device,
		client:   dobiss.NewClient(ep, opts.Transport),
		modules:  modules,
		channels: make(map[string]channelRef),
		cache:    cache.New(device.GetChannels()),
		publish:  opts.Publish,
	}

	sources := make([]poller.Source, 0, len(modules))
	for _, m := range modules {
		src := &moduleSource{module: m, client: broker.client}
		for i := 1; i <= m.Channels(); i++ {
			id := m.ChannelId(i)
			src.ids = append(src.ids, id)
			broker.channels[id] = channelRef{module: m, index: i}
		}
		sources = append(sources, src)
	}

	if err = broker.probe(opts.Locks); err != nil {
		return nil, err
	}

	broker.poller = poller.New(device.ID, time.Duration(device.PollingInterval)*time.Second, sources, broker.cache, opts.Publish,
		poller.WithInitialDelay(DefaultInitialDelay),
		poller.WithLockRegistry(opts.Locks),
		poller.WithMaxConsecutiveFailures(opts.MaxConsecutiveFailures),
		poller.WithFailingHook(opts.OnFailing))

	execOpts := []executor.Option{executor.WithLockRegistry(opts.Locks), executor.WithParser(executor.ParseSwitch)}
	if device.ConfirmWrites {
		execOpts = append(execOpts, executor.WithConfirmation(broker.readChannel))
	}
	broker.executor = executor.New(device.ID, device.GetChannels(), broker, broker.cache, opts.Publish, execOpts...)
	return broker, nil
}

// probe queries every enabled module once. The device is unreachable when a
// module cannot be reached; a malformed answer is only logged.
func (broker *DobissBroker) probe(locks *endpoint.LockRegistry) error {
	for _, m := range broker.modules {
		err := locks.WithLock(context.Background(), broker.client.Endpoint, func(ctx context.Context) error {
			_, err := broker.client.QueryStatus(ctx, m)
			return err
		})
		switch {
		case err == nil:
		case errors.Is(err, constant.ErrProtocol):
			klog.V(2).InfoS("Failed to probe module", "deviceId", broker.Device.ID, "module", m.Name(), "err", err)
		default:
			klog.V(2).InfoS("Failed to connect dobiss gateway", "deviceId", broker.Device.ID, "endpoint", broker.client.Endpoint.String(), "err", err)
			return constant.ErrConnectDevice
		}
	}
	return nil
}

func (broker *DobissBroker) Collect(ctx context.Context) {
	broker.poller.Start(ctx)
}

func (broker *DobissBroker) Destroy(ctx context.Context) {
	broker.poller.Stop()
	broker.cache.Discard()
}

func (broker *DobissBroker) HandleCommand(ctx context.Context, channelId string, cmd interface{}) runtime.CommandResult {
	if runtime.IsRefresh(cmd) {
		return executor.Refresh(ctx, channelId, broker.cache, broker.poller, broker.publish)
	}
	return broker.executor.Execute(ctx, channelId, cmd)
}

func (broker *DobissBroker) Snapshot() []runtime.ChannelValue {
	return broker.cache.Snapshot()
}

func (broker *DobissBroker) Endpoint() endpoint.Endpoint {
	return broker.client.Endpoint
}

// Write sends a command frame; the endpoint lock is held by the executor.
func (broker *DobissBroker) Write(ctx context.Context, channelId string, value int) error {
	ref, ok := broker.channels[channelId]
	if !ok {
		return constant.ErrChannelNotFound
	}
	return broker.client.SendCommand(ctx, ref.module, ref.index, value)
}

func (broker *DobissBroker) readChannel(ctx context.Context, channelId string) (float64, error) {
	ref, ok := broker.channels[channelId]
	if !ok {
		return 0, constant.ErrChannelNotFound
	}
	values, err := broker.client.QueryStatus(ctx, ref.module)
	if err != nil {
		return 0, err
	}
	return float64(values[ref.index-1]), nil
}
