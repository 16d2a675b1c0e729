package cache

import (
	"math"
	"sync"
	"time"

	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"k8s.io/klog/v2"
)

const (
	DefaultThreshold = 0.25
	DefaultPrecision = 1
)

type entry struct {
	channel runtime.Channel
	known   bool
	last    float64
	value   runtime.ChannelValue
}

// ValueCache keeps the last published value per channel and decides whether
// a new reading is worth publishing. It never publishes itself.
type ValueCache struct {
	mu      sync.Mutex
	order   []string
	entries map[string]*entry
	now     func() time.Time
}

func New(channels []runtime.Channel) *ValueCache {
	c := &ValueCache{
		entries: make(map[string]*entry, len(channels)),
		now:     time.Now,
	}
	for _, ch := range channels {
		if ch.Kind == constant.Continuous {
			if ch.Threshold <= 0 {
				ch.Threshold = DefaultThreshold
			}
			if ch.Precision <= 0 {
				ch.Precision = DefaultPrecision
			}
		}
		c.order = append(c.order, ch.Id)
		c.entries[ch.Id] = &entry{channel: ch}
	}
	return c
}

// Update feeds a reading. Discrete channels publish on any change, continuous
// channels when the reading moved more than the threshold away from the last
// published value; the published value is then rounded to the precision.
// The first reading of a channel always publishes. NaN and infinite readings
// are dropped.
func (c *ValueCache) Update(channelId string, raw float64) (bool, runtime.ChannelValue) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[channelId]
	if !ok {
		klog.V(3).InfoS("Dropped reading of unknown channel", "channelId", channelId)
		return false, runtime.ChannelValue{}
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		klog.V(2).InfoS("Dropped non-finite reading", "channelId", channelId, "value", raw)
		return false, e.value
	}

	var next float64
	var value interface{}
	switch e.channel.Kind {
	case constant.Continuous:
		if e.known && math.Abs(raw-e.last) <= e.channel.Threshold {
			return false, e.value
		}
		next = Round(raw, e.channel.Precision)
		value = next
	default:
		next = math.Round(raw)
		if e.known && next == e.last {
			return false, e.value
		}
		value = int(next)
	}

	e.known = true
	e.last = next
	e.value = runtime.ChannelValue{ChannelId: channelId, Value: value, Timestamp: c.now()}
	return true, e.value
}

// Get returns the last published value, false while the channel is unknown.
func (c *ValueCache) Get(channelId string) (runtime.ChannelValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[channelId]
	if !ok || !e.known {
		return runtime.ChannelValue{}, false
	}
	return e.value, true
}

// Snapshot returns the known values in channel order.
func (c *ValueCache) Snapshot() []runtime.ChannelValue {
	c.mu.Lock()
	defer c.mu.Unlock()
	values := make([]runtime.ChannelValue, 0, len(c.order))
	for _, id := range c.order {
		if e := c.entries[id]; e.known {
			values = append(values, e.value)
		}
	}
	return values
}

func (c *ValueCache) Has(channelId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[channelId]
	return ok
}

// Discard resets every channel to unknown.
func (c *ValueCache) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.known = false
		e.last = 0
		e.value = runtime.ChannelValue{}
	}
}

// Round rounds v half away from zero to precision decimals.
func Round(v float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}
