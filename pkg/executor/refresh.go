package executor

import (
	"context"

	"domogateway/pkg/cache"
	"domogateway/pkg/poller"
	"domogateway/pkg/runtime"
	"domogateway/pkg/runtime/constant"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Refresh replays the cached value of channelId, or reads the channel when no
// value is known yet. A fresh reading publishes through the poller.
func Refresh(ctx context.Context, channelId string, c *cache.ValueCache, p *poller.Poller, publish runtime.PublishFunc) runtime.CommandResult {
	if !c.Has(channelId) {
		err := errors.Wrapf(constant.ErrChannelNotFound, "channel %q", channelId)
		return runtime.CommandResult{ChannelId: channelId, Status: runtime.CommandRejected, Error: err.Error(), Err: err}
	}
	if v, ok := c.Get(channelId); ok {
		if publish != nil {
			publish(v)
		}
		return runtime.CommandResult{ChannelId: channelId, Status: runtime.CommandApplied, Value: v.Value}
	}

	p.Refresh(ctx, channelId)
	v, ok := c.Get(channelId)
	if !ok {
		err := errors.Errorf("no reading for channel %q", channelId)
		klog.V(2).InfoS("Failed to refresh channel", "channelId", channelId)
		return runtime.CommandResult{ChannelId: channelId, Status: runtime.CommandFailed, Error: err.Error(), Err: err}
	}
	return runtime.CommandResult{ChannelId: channelId, Status: runtime.CommandApplied, Value: v.Value}
}
