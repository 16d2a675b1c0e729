package poller

import (
	"context"
	"sync"
	"time"

	"domogateway/pkg/cache"
	"domogateway/pkg/endpoint"
	"domogateway/pkg/runtime"
	"go.uber.org/atomic"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/klog/v2"
)

const (
	DefaultInitialDelay           = time.Second
	DefaultMaxConsecutiveFailures = 5
)

// Reading is a raw value read from a source.
type Reading struct {
	ChannelId string
	Value     float64
}

// Source is one independently readable unit of a device: a module of a
// domotics gateway or a register quantity of a Modbus unit. A failing source
// never keeps the others of the same tick from being read.
type Source interface {
	Name() string
	Endpoint() endpoint.Endpoint
	Channels() []string
	Read(ctx context.Context) ([]Reading, error)
}

type Option func(*Poller)

func WithInitialDelay(d time.Duration) Option {
	return func(p *Poller) { p.initialDelay = d }
}

func WithLockRegistry(r *endpoint.LockRegistry) Option {
	return func(p *Poller) { p.locks = r }
}

// WithMaxConsecutiveFailures sets after how many fully failed ticks the
// failing hook fires. 0 disables it.
func WithMaxConsecutiveFailures(n int) Option {
	return func(p *Poller) { p.maxFailures = n }
}

// WithFailingHook is told when the device starts and stops failing.
func WithFailingHook(fn func(failing bool)) Option {
	return func(p *Poller) { p.onFailing = fn }
}

// Poller reads every source of a device on a fixed period, feeds the cache and
// publishes what the cache lets through.
type Poller struct {
	deviceId     string
	sources      []Source
	cache        *cache.ValueCache
	publish      runtime.PublishFunc
	locks        *endpoint.LockRegistry
	period       time.Duration
	initialDelay time.Duration
	maxFailures  int
	onFailing    func(failing bool)

	ticks    *atomic.Uint64
	failures *atomic.Int32
	failing  *atomic.Bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	running sync.WaitGroup
}

func New(deviceId string, period time.Duration, sources []Source, c *cache.ValueCache, publish runtime.PublishFunc, opts ...Option) *Poller {
	p := &Poller{
		deviceId:     deviceId,
		sources:      sources,
		cache:        c,
		publish:      publish,
		locks:        endpoint.Default(),
		period:       period,
		initialDelay: DefaultInitialDelay,
		maxFailures:  DefaultMaxConsecutiveFailures,
		ticks:        atomic.NewUint64(0),
		failures:     atomic.NewInt32(0),
		failing:      atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start schedules the first tick after the initial delay, then one tick per
// period measured from the start of the previous one.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)

	p.running.Add(1)
	go func() {
		defer p.running.Done()
		timer := time.NewTimer(p.initialDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		wait.NonSlidingUntilWithContext(ctx, p.tick, p.period)
		klog.V(2).InfoS("Stopped polling", "deviceId", p.deviceId)
	}()
	klog.V(1).InfoS("Started polling", "deviceId", p.deviceId, "period", p.period, "sources", len(p.sources))
}

// Stop cancels the schedule and waits for a running tick to drain. An
// exchange already on the wire is never interrupted.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	p.running.Wait()
}

func (p *Poller) Ticks() uint64 {
	return p.ticks.Load()
}

func (p *Poller) tick(ctx context.Context) {
	p.PollOnce(ctx)
}

// PollOnce reads every source in order and returns the published values.
// ctx only gates starting the next source and waiting for its endpoint.
func (p *Poller) PollOnce(ctx context.Context) []runtime.ChannelValue {
	p.ticks.Inc()
	published, succeeded, failed := p.read(ctx, p.sources)
	if ctx.Err() == nil {
		p.account(succeeded, failed)
	}
	klog.V(4).InfoS("Polled device", "deviceId", p.deviceId, "published", len(published), "failedSources", failed)
	return published
}

// Refresh reads only the sources owning channelId.
func (p *Poller) Refresh(ctx context.Context, channelId string) []runtime.ChannelValue {
	owners := make([]Source, 0, 1)
	for _, s := range p.sources {
		for _, id := range s.Channels() {
			if id == channelId {
				owners = append(owners, s)
				break
			}
		}
	}
	published, _, _ := p.read(ctx, owners)
	return published
}

// read feeds the cache while the endpoint lock is held so a command on the
// same endpoint cannot land between a reading and its cache update. Values are
// published after the lock is released. ctx gates acquiring the lock, the
// exchange itself runs to completion.
func (p *Poller) read(ctx context.Context, sources []Source) (published []runtime.ChannelValue, succeeded, failed int) {
	for _, s := range sources {
		if ctx.Err() != nil {
			return
		}
		var changed []runtime.ChannelValue
		err := p.locks.WithLock(ctx, s.Endpoint(), func(context.Context) error {
			readings, err := s.Read(context.Background())
			if err != nil {
				return err
			}
			for _, r := range readings {
				if ok, v := p.cache.Update(r.ChannelId, r.Value); ok {
					changed = append(changed, v)
				}
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failed++
			klog.V(2).InfoS("Failed to read source", "deviceId", p.deviceId, "source", s.Name(), "err", err)
			continue
		}
		succeeded++
		for _, v := range changed {
			if p.superseded(v) {
				continue
			}
			published = append(published, v)
			if p.publish != nil {
				p.publish(v)
			}
		}
	}
	return
}

// superseded reports whether a command cached a newer value for the channel
// after v was read.
func (p *Poller) superseded(v runtime.ChannelValue) bool {
	cur, ok := p.cache.Get(v.ChannelId)
	return ok && (cur.Value != v.Value || !cur.Timestamp.Equal(v.Timestamp))
}

func (p *Poller) account(succeeded, failed int) {
	if succeeded > 0 || failed == 0 {
		p.failures.Store(0)
		if p.failing.CAS(true, false) {
			klog.V(2).InfoS("Device recovered", "deviceId", p.deviceId)
			if p.onFailing != nil {
				p.onFailing(false)
			}
		}
		return
	}
	n := p.failures.Inc()
	if p.maxFailures > 0 && int(n) >= p.maxFailures && p.failing.CAS(false, true) {
		klog.V(2).InfoS("Device failing", "deviceId", p.deviceId, "consecutiveFailures", n)
		if p.onFailing != nil {
			p.onFailing(true)
		}
	}
}
