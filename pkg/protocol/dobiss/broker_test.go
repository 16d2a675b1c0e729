package dobiss

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"domogateway/pkg/endpoint"
	"domogateway/pkg/protocol/dobiss/dobisstest"
	dobiss "domogateway/pkg/protocol/dobiss/runtime"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"domogateway/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	values []runtime.ChannelValue
}

func (r *recorder) publish(v runtime.ChannelValue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) take() []runtime.ChannelValue {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := r.values
	r.values = nil
	return values
}

func newDevice(g *dobisstest.Gateway, modules ...*dobiss.ModuleConfig) *dobiss.DobissDevice {
	ep := g.Endpoint()
	d := &dobiss.DobissDevice{
		DeviceMeta:      runtime.DeviceMeta{ObjectMeta: runtime.ObjectMeta{ID: "living", Name: "living"}, DeviceType: "dobiss"},
		Host:            ep.Host,
		Port:            ep.Port,
		PollingInterval: 1,
		Modules:         modules,
	}
	d.IndexDevice()
	return d
}

func newBroker(t *testing.T, d *dobiss.DobissDevice, r *recorder) *DobissBroker {
	b, err := NewBroker(d, runtime.BrokerOptions{
		Publish:                r.publish,
		Locks:                  endpoint.NewLockRegistry(),
		Transport:              transport.NewTcpClient(time.Second, time.Second),
		MaxConsecutiveFailures: 5,
	})
	require.NoError(t, err)
	return b.(*DobissBroker)
}

func TestRelayPollPublishesChanges(t *testing.T) {
	g, err := dobisstest.NewGateway()
	require.NoError(t, err)
	defer g.Close()
	g.SetStatus(5, 1, 0, 1, 0)

	r := &recorder{}
	b := newBroker(t, newDevice(g, &dobiss.ModuleConfig{Name: "relay01", Kind: dobiss.KindRelay, Address: 5}), r)

	b.poller.PollOnce(context.Background())
	published := make(map[string]interface{})
	for _, v := range r.take() {
		published[v.ChannelId] = v.Value
	}
	require.Len(t, published, dobiss.RelayChannels)
	assert.Equal(t, 1, published["relay01_channel1"])
	assert.Equal(t, 0, published["relay01_channel2"])
	assert.Equal(t, 1, published["relay01_channel3"])
	assert.Equal(t, 0, published["relay01_channel4"])

	b.poller.PollOnce(context.Background())
	assert.Empty(t, r.take())

	g.SetStatus(5, 1, 1, 1, 0)
	b.poller.PollOnce(context.Background())
	changed := r.take()
	require.Len(t, changed, 1)
	assert.Equal(t, "relay01_channel2", changed[0].ChannelId)
}

func TestCommandUpdatesCacheOptimistically(t *testing.T) {
	g, err := dobisstest.NewGateway()
	require.NoError(t, err)
	defer g.Close()

	r := &recorder{}
	b := newBroker(t, newDevice(g,
		&dobiss.ModuleConfig{Name: "relay01", Kind: dobiss.KindRelay, Address: 5},
		&dobiss.ModuleConfig{Name: "dimmer01", Kind: dobiss.KindDimmer, Address: 2}), r)
	b.poller.PollOnce(context.Background())
	r.take()

	res := b.HandleCommand(context.Background(), "relay01_channel3", "ON")
	require.Equal(t, runtime.CommandApplied, res.Status, res.Error)
	res = b.HandleCommand(context.Background(), "dimmer01_channel2", 65.0)
	require.Equal(t, runtime.CommandApplied, res.Status, res.Error)

	assert.Equal(t, []dobisstest.Command{
		{Type: 0x04, Address: 5, Index: 3, Value: 1, Aux: 0x64},
		{Type: 0xFF, Address: 2, Index: 2, Value: 1, Aux: 65},
	}, g.Commands())

	published := r.take()
	require.Len(t, published, 2)
	assert.Equal(t, 1, published[0].Value)
	assert.Equal(t, 65, published[1].Value)

	// the device confirms on the next tick, nothing new to publish
	b.poller.PollOnce(context.Background())
	assert.Empty(t, r.take())
}

func TestOutOfDomainCommandsNeverReachGateway(t *testing.T) {
	g, err := dobisstest.NewGateway()
	require.NoError(t, err)
	defer g.Close()

	b := newBroker(t, newDevice(g,
		&dobiss.ModuleConfig{Name: "relay01", Kind: dobiss.KindRelay, Address: 5},
		&dobiss.ModuleConfig{Name: "dimmer01", Kind: dobiss.KindDimmer, Address: 2}), &recorder{})
	connections := g.Connections.Load()

	for channelId, cmd := range map[string]interface{}{
		"dimmer01_channel1": 150.0,
		"relay01_channel1":  "TOGGLE",
		"relay01_channel13": "ON",
		"relay01_channel2":  2.0,
	} {
		res := b.HandleCommand(context.Background(), channelId, cmd)
		assert.Equal(t, runtime.CommandRejected, res.Status, channelId)
	}
	assert.Equal(t, connections, g.Connections.Load())
	assert.Empty(t, g.Commands())
}

func TestRefreshReplaysCachedValue(t *testing.T) {
	g, err := dobisstest.NewGateway()
	require.NoError(t, err)
	defer g.Close()
	g.SetStatus(2, 40)

	r := &recorder{}
	b := newBroker(t, newDevice(g, &dobiss.ModuleConfig{Name: "dimmer01", Kind: dobiss.KindDimmer, Address: 2}), r)

	res := b.HandleCommand(context.Background(), "dimmer01_channel1", runtime.RefreshCommand)
	require.Equal(t, runtime.CommandApplied, res.Status)
	assert.Equal(t, 40, res.Value)
	assert.Len(t, r.take(), dobiss.DimmerChannels)

	connections := g.Connections.Load()
	res = b.HandleCommand(context.Background(), "dimmer01_channel1", runtime.RefreshCommand)
	assert.Equal(t, 40, res.Value)
	assert.Len(t, r.take(), 1)
	assert.Equal(t, connections, g.Connections.Load())
}

func TestConfirmWritesRereadsModule(t *testing.T) {
	g, err := dobisstest.NewGateway()
	require.NoError(t, err)
	defer g.Close()

	d := newDevice(g, &dobiss.ModuleConfig{Name: "relay01", Kind: dobiss.KindRelay, Address: 5})
	d.ConfirmWrites = true
	b := newBroker(t, d, &recorder{})

	connections := g.Connections.Load()
	res := b.HandleCommand(context.Background(), "relay01_channel1", true)
	require.Equal(t, runtime.CommandApplied, res.Status)
	assert.Equal(t, 1, res.Value)
	assert.Equal(t, connections+2, g.Connections.Load())
}

func TestNewBrokerSetupErrors(t *testing.T) {
	g, err := dobisstest.NewGateway()
	require.NoError(t, err)
	ep := g.Endpoint()

	d := newDevice(g, &dobiss.ModuleConfig{Name: "relay01", Kind: dobiss.KindRelay, Address: 0})
	_, err = NewBroker(d, runtime.BrokerOptions{})
	assert.True(t, errors.Is(err, constant.ErrDeviceEmptyVariable))

	d = newDevice(g, &dobiss.ModuleConfig{Name: "relay01", Kind: dobiss.KindRelay, Address: 5})
	d.Host = " "
	_, err = NewBroker(d, runtime.BrokerOptions{})
	assert.True(t, errors.Is(err, constant.ErrConfiguration))

	d = newDevice(g, &dobiss.ModuleConfig{Name: "relay01", Kind: dobiss.KindRelay, Address: 5})
	d.PollingInterval = 0
	_, err = NewBroker(d, runtime.BrokerOptions{})
	assert.True(t, errors.Is(err, constant.ErrConfiguration))

	require.NoError(t, g.Close())
	d = newDevice(g, &dobiss.ModuleConfig{Name: "relay01", Kind: dobiss.KindRelay, Address: 5})
	d.Host, d.Port = ep.Host, ep.Port
	_, err = NewBroker(d, runtime.BrokerOptions{Transport: transport.NewTcpClient(100*time.Millisecond, 100*time.Millisecond)})
	assert.True(t, errors.Is(err, constant.ErrConnectDevice))
}

func TestFailingModuleDoesNotBlockOthers(t *testing.T) {
	g, err := dobisstest.NewGateway()
	require.NoError(t, err)
	defer g.Close()
	g.SetStatus(2, 101)
	g.SetStatus(5, 1)

	r := &recorder{}
	b := newBroker(t, newDevice(g,
		&dobiss.ModuleConfig{Name: "dimmer01", Kind: dobiss.KindDimmer, Address: 2},
		&dobiss.ModuleConfig{Name: "relay01", Kind: dobiss.KindRelay, Address: 5}), r)

	b.poller.PollOnce(context.Background())
	published := r.take()
	require.Len(t, published, dobiss.RelayChannels)
	assert.Equal(t, "relay01_channel1", published[0].ChannelId)
	_, known := b.cache.Get("dimmer01_channel1")
	assert.False(t, known)
}

func TestCollectAndDestroy(t *testing.T) {
	g, err := dobisstest.NewGateway()
	require.NoError(t, err)
	defer g.Close()
	g.SetStatus(5, 1)

	r := &recorder{}
	b := newBroker(t, newDevice(g, &dobiss.ModuleConfig{Name: "relay01", Kind: dobiss.KindRelay, Address: 5}), r)
	b.Collect(context.Background())
	require.Eventually(t, func() bool { return len(b.Snapshot()) == dobiss.RelayChannels }, 3*time.Second, 20*time.Millisecond)
	b.Destroy(context.Background())

	connections := g.Connections.Load()
	time.Sleep(1200 * time.Millisecond)
	assert.Equal(t, connections, g.Connections.Load())
	assert.Empty(t, b.Snapshot())
}
