package dantherm

import (
	"context"
	"strconv"
	"time"

	"domogateway/pkg/cache"
	"domogateway/pkg/endpoint"
	"domogateway/pkg/executor"
	"domogateway/pkg/poller"
	dantherm "domogateway/pkg/protocol/dantherm/runtime"
	modbus "domogateway/pkg/protocol/modbus/runtime"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

const DefaultInitialDelay = time.Second

var _ runtime.Broker = (*DanthermBroker)(nil)

// registerSource polls one quantity so a failing register never hides the
// others.
type registerSource struct {
	register dantherm.Register
	client   *modbus.Client
}

func (s *registerSource) Name() string { return s.register.ChannelId }

func (s *registerSource) Endpoint() endpoint.Endpoint { return s.client.Endpoint }

func (s *registerSource) Channels() []string { return []string{s.register.ChannelId} }

func (s *registerSource) Read(ctx context.Context) ([]poller.Reading, error) {
	regs, err := s.client.ReadHoldingRegisters(ctx, s.register.Address, s.register.Count())
	if err != nil {
		return nil, err
	}
	v, err := s.register.Decode(regs)
	if err != nil {
		return nil, err
	}
	return []poller.Reading{{ChannelId: s.register.ChannelId, Value: v}}, nil
}

type DanthermBroker struct {
	Device    *dantherm.DanthermDevice
	client    *modbus.Client
	simulator *Simulator
	cache     *cache.ValueCache
	poller    *poller.Poller
	executor  *executor.Executor
	publish   runtime.PublishFunc
}

func NewBroker(d runtime.Device, opts runtime.BrokerOptions) (runtime.Broker, error) {
	device, ok := d.(*dantherm.DanthermDevice)
	if !ok {
		klog.V(2).InfoS("Failed to new dantherm broker,device type not supported")
		return nil, constant.ErrDeviceType
	}
	opts = opts.Complete()

	if err := runtime.ConfigurationError(runtime.ValidateConnection(device.Host, device.Port, device.PollingInterval)); err != nil {
		return nil, err
	}
	ep, err := endpoint.New(device.Host, device.Port, endpoint.DefaultModbusPort)
	if err != nil {
		return nil, err
	}

	broker := &DanthermBroker{
		Device:  device,
		cache:   cache.New(device.GetChannels()),
		publish: opts.Publish,
	}
	if device.Simulate {
		if broker.simulator, err = NewSimulator(); err != nil {
			return nil, err
		}
		ep = broker.simulator.Endpoint()
	}
	broker.client = modbus.NewClient(ep, device.UnitId, opts.Transport)

	if err = broker.probe(opts.Locks); err != nil {
		broker.closeSimulator()
		return nil, err
	}

	sources := make([]poller.Source, 0, len(dantherm.RegisterMap))
	for _, r := range dantherm.RegisterMap {
		sources = append(sources, &registerSource{register: r, client: broker.client})
	}
	broker.poller = poller.New(device.ID, time.Duration(device.PollingInterval)*time.Second, sources, broker.cache, opts.Publish,
		poller.WithInitialDelay(DefaultInitialDelay),
		poller.WithLockRegistry(opts.Locks),
		poller.WithMaxConsecutiveFailures(opts.MaxConsecutiveFailures),
		poller.WithFailingHook(opts.OnFailing))

	execOpts := []executor.Option{executor.WithLockRegistry(opts.Locks)}
	if device.ConfirmWrites {
		execOpts = append(execOpts, executor.WithConfirmation(broker.readChannel))
	}
	broker.executor = executor.New(device.ID, device.GetChannels(), broker, broker.cache, opts.Publish, execOpts...)
	return broker, nil
}

// probe reads the serial number and both bypass switch positions. A unit
// answering them is considered connected.
func (broker *DanthermBroker) probe(locks *endpoint.LockRegistry) error {
	err := locks.WithLock(context.Background(), broker.client.Endpoint, func(ctx context.Context) error {
		regs, err := broker.client.ReadHoldingRegisters(ctx, dantherm.SerialNumberRegister, dantherm.SerialNumberCount)
		if err != nil {
			return err
		}
		serial, err := dantherm.SerialNumber(regs)
		if err != nil {
			return err
		}
		broker.Device.SerialNumber = strconv.FormatUint(serial, 10)

		for _, address := range []uint16{dantherm.BypassLeftRegister, dantherm.BypassRightRegister} {
			regs, err = broker.client.ReadHoldingRegisters(ctx, address, 2)
			if err != nil {
				return err
			}
			klog.V(3).InfoS("Read bypass switch", "deviceId", broker.Device.ID, "register", address, "position", modbus.CombineToInt32(regs[0], regs[1]))
		}
		return nil
	})
	if err != nil {
		klog.V(2).InfoS("Failed to connect dantherm unit", "deviceId", broker.Device.ID, "endpoint", broker.client.Endpoint.String(), "err", err)
		return errors.Wrapf(constant.ErrConnectDevice, "probe %s: %v", broker.client.Endpoint.String(), err)
	}
	klog.V(2).InfoS("Connected dantherm unit", "deviceId", broker.Device.ID, "serialNumber", broker.Device.SerialNumber)
	return nil
}

func (broker *DanthermBroker) Collect(ctx context.Context) {
	broker.poller.Start(ctx)
}

func (broker *DanthermBroker) Destroy(ctx context.Context) {
	broker.poller.Stop()
	broker.cache.Discard()
	broker.closeSimulator()
}

func (broker *DanthermBroker) closeSimulator() {
	if broker.simulator != nil {
		broker.simulator.Close()
		broker.simulator = nil
	}
}

func (broker *DanthermBroker) HandleCommand(ctx context.Context, channelId string, cmd interface{}) runtime.CommandResult {
	if runtime.IsRefresh(cmd) {
		return executor.Refresh(ctx, channelId, broker.cache, broker.poller, broker.publish)
	}
	return broker.executor.Execute(ctx, channelId, cmd)
}

func (broker *DanthermBroker) Snapshot() []runtime.ChannelValue {
	return broker.cache.Snapshot()
}

func (broker *DanthermBroker) Endpoint() endpoint.Endpoint {
	return broker.client.Endpoint
}

// Write puts value in the low register and 0 in the high one.
func (broker *DanthermBroker) Write(ctx context.Context, channelId string, value int) error {
	r, ok := dantherm.LookupRegister(channelId)
	if !ok {
		return constant.ErrChannelNotFound
	}
	return broker.client.WriteRegisterPair(ctx, r.Address, uint16(value))
}

func (broker *DanthermBroker) readChannel(ctx context.Context, channelId string) (float64, error) {
	r, ok := dantherm.LookupRegister(channelId)
	if !ok {
		return 0, constant.ErrChannelNotFound
	}
	regs, err := broker.client.ReadHoldingRegisters(ctx, r.Address, r.Count())
	if err != nil {
		return 0, err
	}
	return r.Decode(regs)
}
