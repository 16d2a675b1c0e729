package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"domogateway/pkg/cache"
	"domogateway/pkg/endpoint"
	"domogateway/pkg/poller"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type write struct {
	channelId string
	value     int
}

type fakeWriter struct {
	writes []write
	err    error
}

func (w *fakeWriter) Endpoint() endpoint.Endpoint {
	return endpoint.Endpoint{Host: "192.168.1.20", Port: 502}
}

func (w *fakeWriter) Write(_ context.Context, channelId string, value int) error {
	w.writes = append(w.writes, write{channelId, value})
	return w.err
}

var hcv5Channels = []runtime.Channel{
	{Id: "fan-speed", Kind: constant.Discrete, AccessMode: constant.AccessModeReadWrite, Min: 0, Max: 4},
	{Id: "fan-rpm1", Kind: constant.Continuous, AccessMode: constant.AccessModeReadOnly},
}

func newExecutor(w Writer, opts ...Option) (*Executor, *cache.ValueCache, *[]runtime.ChannelValue) {
	c := cache.New(hcv5Channels)
	published := &[]runtime.ChannelValue{}
	e := New("hcv5", hcv5Channels, w, c, func(v runtime.ChannelValue) { *published = append(*published, v) }, opts...)
	return e, c, published
}

func TestOutOfDomainCommandNeverWrites(t *testing.T) {
	w := &fakeWriter{}
	e, c, published := newExecutor(w)

	res := e.Execute(context.Background(), "fan-speed", 7.0)
	assert.Equal(t, runtime.CommandRejected, res.Status)
	assert.True(t, errors.Is(res.Err, constant.ErrInvalidCommand))
	assert.Empty(t, w.writes)
	assert.Empty(t, *published)
	_, known := c.Get("fan-speed")
	assert.False(t, known)
}

func TestAcceptedCommandWritesOnce(t *testing.T) {
	w := &fakeWriter{}
	e, c, published := newExecutor(w)

	res := e.Execute(context.Background(), "fan-speed", 3.0)
	assert.Equal(t, runtime.CommandApplied, res.Status)
	assert.Equal(t, []write{{"fan-speed", 3}}, w.writes)
	require.Len(t, *published, 1)
	assert.Equal(t, 3, (*published)[0].Value)

	v, ok := c.Get("fan-speed")
	require.True(t, ok)
	assert.Equal(t, 3, v.Value)
}

func TestFailedWriteLeavesCache(t *testing.T) {
	w := &fakeWriter{err: &constant.TransportError{Op: "dial", Endpoint: "192.168.1.20:502", Err: errors.New("refused")}}
	e, c, published := newExecutor(w)
	c.Update("fan-speed", 1)

	res := e.Execute(context.Background(), "fan-speed", "2")
	assert.Equal(t, runtime.CommandFailed, res.Status)
	assert.True(t, errors.Is(res.Err, constant.ErrTransport))
	assert.Len(t, w.writes, 1)
	assert.Empty(t, *published)
	v, _ := c.Get("fan-speed")
	assert.Equal(t, 1, v.Value)
}

func TestRejectsUnknownAndReadOnlyChannels(t *testing.T) {
	w := &fakeWriter{}
	e, _, _ := newExecutor(w)

	res := e.Execute(context.Background(), "fan-rpm1", 1200.0)
	assert.True(t, errors.Is(res.Err, constant.ErrChannelReadOnly))
	res = e.Execute(context.Background(), "bypass", 1.0)
	assert.True(t, errors.Is(res.Err, constant.ErrChannelNotFound))
	res = e.Execute(context.Background(), "fan-speed", 2.5)
	assert.Equal(t, runtime.CommandRejected, res.Status)
	assert.Empty(t, w.writes)
}

func TestConfirmationFeedsReadBack(t *testing.T) {
	w := &fakeWriter{}
	e, _, published := newExecutor(w, WithConfirmation(func(ctx context.Context, channelId string) (float64, error) {
		return 2, nil
	}))

	res := e.Execute(context.Background(), "fan-speed", 4.0)
	assert.Equal(t, runtime.CommandApplied, res.Status)
	assert.Equal(t, 2, res.Value)
	require.Len(t, *published, 1)
	assert.Equal(t, 2, (*published)[0].Value)
}

func TestBusyEndpointFails(t *testing.T) {
	locks := endpoint.NewLockRegistry(endpoint.WithAcquireTimeout(20 * time.Millisecond))
	w := &fakeWriter{}
	e, _, _ := newExecutor(w, WithLockRegistry(locks))

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = locks.WithLock(context.Background(), w.Endpoint(), func(ctx context.Context) error {
			close(held)
			<-done
			return nil
		})
	}()
	<-held
	defer close(done)

	res := e.Execute(context.Background(), "fan-speed", 1.0)
	assert.Equal(t, runtime.CommandFailed, res.Status)
	assert.True(t, errors.Is(res.Err, constant.ErrBusy))
	assert.Empty(t, w.writes)
}

func TestParseSwitch(t *testing.T) {
	relay := runtime.Channel{Min: 0, Max: 1}
	dimmer := runtime.Channel{Min: 0, Max: 100}
	for _, tc := range []struct {
		ch   runtime.Channel
		cmd  interface{}
		want int
	}{
		{relay, "ON", 1},
		{relay, "off", 0},
		{relay, true, 1},
		{relay, "0", 0},
		{dimmer, "ON", 100},
		{dimmer, "OFF", 0},
		{dimmer, 40.0, 40},
	} {
		got, err := ParseSwitch(tc.ch, tc.cmd)
		require.NoError(t, err, tc.cmd)
		assert.Equal(t, tc.want, got, tc.cmd)
	}
	_, err := ParseSwitch(relay, "TOGGLE")
	assert.True(t, errors.Is(err, constant.ErrInvalidCommand))
}

type staticSource struct {
	reads int
}

func (s *staticSource) Name() string                { return "registers" }
func (s *staticSource) Endpoint() endpoint.Endpoint { return endpoint.Endpoint{Host: "192.168.1.20", Port: 502} }
func (s *staticSource) Channels() []string          { return []string{"fan-speed"} }

func (s *staticSource) Read(context.Context) ([]poller.Reading, error) {
	s.reads++
	return []poller.Reading{{ChannelId: "fan-speed", Value: 2}}, nil
}

func TestRefresh(t *testing.T) {
	c := cache.New(hcv5Channels)
	src := &staticSource{}
	var published []runtime.ChannelValue
	publish := func(v runtime.ChannelValue) { published = append(published, v) }
	p := poller.New("hcv5", time.Second, []poller.Source{src}, c, publish)

	res := Refresh(context.Background(), "fan-speed", c, p, publish)
	assert.Equal(t, runtime.CommandApplied, res.Status)
	assert.Equal(t, 2, res.Value)
	assert.Equal(t, 1, src.reads)
	require.Len(t, published, 1)

	res = Refresh(context.Background(), "fan-speed", c, p, publish)
	assert.Equal(t, runtime.CommandApplied, res.Status)
	assert.Equal(t, 1, src.reads)
	assert.Len(t, published, 2)

	res = Refresh(context.Background(), "co2", c, p, publish)
	assert.Equal(t, runtime.CommandRejected, res.Status)
}

var boardChannels = []runtime.Channel{
	{Id: "relay01_channel1", Kind: constant.Discrete, AccessMode: constant.AccessModeReadWrite, Min: 0, Max: 1},
	{Id: "relay01_channel2", Kind: constant.Discrete, AccessMode: constant.AccessModeReadWrite, Min: 0, Max: 1},
}

// relayBoard is one module answering both reads and writes on one endpoint.
type relayBoard struct {
	mu    sync.Mutex
	state map[string]int
}

func (b *relayBoard) Name() string                { return "relay01" }
func (b *relayBoard) Endpoint() endpoint.Endpoint { return endpoint.Endpoint{Host: "192.168.1.30", Port: 10001} }
func (b *relayBoard) Channels() []string          { return []string{"relay01_channel1", "relay01_channel2"} }

func (b *relayBoard) Read(context.Context) ([]poller.Reading, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return []poller.Reading{
		{ChannelId: "relay01_channel1", Value: float64(b.state["relay01_channel1"])},
		{ChannelId: "relay01_channel2", Value: float64(b.state["relay01_channel2"])},
	}, nil
}

func (b *relayBoard) Write(_ context.Context, channelId string, value int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state[channelId] = value
	return nil
}

func TestCommandBetweenPollAndPublishKeepsCacheCurrent(t *testing.T) {
	board := &relayBoard{state: map[string]int{}}
	locks := endpoint.NewLockRegistry()
	c := cache.New(boardChannels)

	var (
		e       *Executor
		log     []runtime.ChannelValue
		applied bool
	)
	publish := func(v runtime.ChannelValue) {
		log = append(log, v)
		if v.ChannelId == "relay01_channel1" && !applied {
			applied = true
			res := e.Execute(context.Background(), "relay01_channel2", 1.0)
			assert.Equal(t, runtime.CommandApplied, res.Status)
		}
	}
	e = New("board", boardChannels, board, c, publish, WithLockRegistry(locks))
	p := poller.New("board", time.Second, []poller.Source{board}, c, publish, poller.WithLockRegistry(locks))

	p.PollOnce(context.Background())
	require.True(t, applied)

	assert.Equal(t, 1, board.state["relay01_channel2"])
	cached, ok := c.Get("relay01_channel2")
	require.True(t, ok)
	assert.Equal(t, 1, cached.Value)

	var last runtime.ChannelValue
	for _, v := range log {
		if v.ChannelId == "relay01_channel2" {
			last = v
		}
	}
	assert.Equal(t, 1, last.Value)

	assert.Empty(t, p.PollOnce(context.Background()))
}
