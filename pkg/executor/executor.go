package executor

import (
	"context"
	"math"
	"strconv"
	"strings"

	"domogateway/pkg/cache"
	"domogateway/pkg/endpoint"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Writer puts a validated integer value on a channel. It is called with the
// endpoint lock held.
type Writer interface {
	Endpoint() endpoint.Endpoint
	Write(ctx context.Context, channelId string, value int) error
}

// Reader reads back the current raw value of a channel.
type Reader func(ctx context.Context, channelId string) (float64, error)

// Parser turns a raw command into the integer to write.
type Parser func(channel runtime.Channel, cmd interface{}) (int, error)

type Option func(*Executor)

func WithLockRegistry(r *endpoint.LockRegistry) Option {
	return func(e *Executor) { e.locks = r }
}

func WithParser(p Parser) Option {
	return func(e *Executor) { e.parse = p }
}

// WithConfirmation re-reads a channel after a successful write and feeds the
// cache with what the device reports instead of the written value.
func WithConfirmation(r Reader) Option {
	return func(e *Executor) { e.confirm = r }
}

type Executor struct {
	deviceId string
	channels map[string]runtime.Channel
	writer   Writer
	cache    *cache.ValueCache
	publish  runtime.PublishFunc
	locks    *endpoint.LockRegistry
	parse    Parser
	confirm  Reader
}

func New(deviceId string, channels []runtime.Channel, w Writer, c *cache.ValueCache, publish runtime.PublishFunc, opts ...Option) *Executor {
	e := &Executor{
		deviceId: deviceId,
		channels: make(map[string]runtime.Channel, len(channels)),
		writer:   w,
		cache:    c,
		publish:  publish,
		locks:    endpoint.Default(),
		parse:    ParseInteger,
	}
	for _, ch := range channels {
		e.channels[ch.Id] = ch
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates cmd against the channel domain and writes it. The cache
// is updated with the written value once the device acknowledged it, before
// the endpoint lock is released. The change is published afterwards.
func (e *Executor) Execute(ctx context.Context, channelId string, cmd interface{}) runtime.CommandResult {
	value, err := e.validate(channelId, cmd)
	if err != nil {
		klog.V(2).InfoS("Rejected command", "deviceId", e.deviceId, "channelId", channelId, "command", cmd, "err", err)
		return runtime.CommandResult{ChannelId: channelId, Status: runtime.CommandRejected, Error: err.Error(), Err: err}
	}

	var (
		current runtime.ChannelValue
		changed bool
	)
	err = e.locks.WithLock(ctx, e.writer.Endpoint(), func(lockCtx context.Context) error {
		if err := e.writer.Write(lockCtx, channelId, value); err != nil {
			return err
		}
		raw := float64(value)
		if e.confirm != nil {
			if v, err := e.confirm(lockCtx, channelId); err != nil {
				klog.V(2).InfoS("Failed to confirm write", "deviceId", e.deviceId, "channelId", channelId, "err", err)
			} else {
				raw = v
			}
		}
		changed, current = e.cache.Update(channelId, raw)
		return nil
	})
	if err != nil {
		klog.V(2).InfoS("Failed to execute command", "deviceId", e.deviceId, "channelId", channelId, "value", value, "err", err)
		return runtime.CommandResult{ChannelId: channelId, Status: runtime.CommandFailed, Error: err.Error(), Err: err}
	}

	if changed && e.publish != nil {
		e.publish(current)
	}
	klog.V(3).InfoS("Executed command", "deviceId", e.deviceId, "channelId", channelId, "value", value)
	return runtime.CommandResult{ChannelId: channelId, Status: runtime.CommandApplied, Value: current.Value}
}

func (e *Executor) validate(channelId string, cmd interface{}) (int, error) {
	ch, ok := e.channels[channelId]
	if !ok {
		return 0, errors.Wrapf(constant.ErrChannelNotFound, "channel %q", channelId)
	}
	if !ch.AccessMode.Writable() {
		return 0, errors.Wrapf(constant.ErrChannelReadOnly, "channel %q", channelId)
	}
	value, err := e.parse(ch, cmd)
	if err != nil {
		return 0, err
	}
	if value < ch.Min || value > ch.Max {
		return 0, errors.Wrapf(constant.ErrInvalidCommand, "%d outside %d..%d", value, ch.Min, ch.Max)
	}
	return value, nil
}

// ParseInteger accepts whole JSON numbers and decimal strings.
func ParseInteger(_ runtime.Channel, cmd interface{}) (int, error) {
	switch v := cmd.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, errors.Wrapf(constant.ErrInvalidCommand, "%v is not a whole number", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.Wrapf(constant.ErrInvalidCommand, "%q is not a number", v)
		}
		return n, nil
	default:
		return 0, errors.Wrapf(constant.ErrInvalidCommand, "unsupported command %v", cmd)
	}
}

// ParseSwitch accepts ON/OFF, booleans and 1/0 for two state channels. On a
// channel with a wider range ON selects the maximum and OFF the minimum.
func ParseSwitch(ch runtime.Channel, cmd interface{}) (int, error) {
	switch v := cmd.(type) {
	case bool:
		if v {
			return ch.Max, nil
		}
		return ch.Min, nil
	case string:
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "ON", "TRUE":
			return ch.Max, nil
		case "OFF", "FALSE":
			return ch.Min, nil
		}
	}
	return ParseInteger(ch, cmd)
}
