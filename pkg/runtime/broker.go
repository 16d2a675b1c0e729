package runtime

import (
	"domogateway/pkg/endpoint"
	"domogateway/pkg/transport"
)

// BrokerOptions is what a broker borrows from the process: the publish sink,
// the shared endpoint locks and the transport.
type BrokerOptions struct {
	Publish PublishFunc
	// OnFailing is told when every source of the device keeps failing and
	// when it recovers.
	OnFailing              func(failing bool)
	Locks                  *endpoint.LockRegistry
	Transport              transport.Client
	MaxConsecutiveFailures int
}

// NewBroker sets up the communication of a device. It returns a
// ConfigurationError for an invalid setup, constant.ErrConnectDevice when the
// connectivity probe fails and constant.ErrDeviceEmptyVariable when nothing
// is left to poll.
type NewBroker func(d Device, opts BrokerOptions) (Broker, error)

func (o BrokerOptions) Complete() BrokerOptions {
	if o.Locks == nil {
		o.Locks = endpoint.Default()
	}
	if o.Transport == nil {
		o.Transport = transport.NewTcpClient(0, 0)
	}
	if o.Publish == nil {
		o.Publish = func(ChannelValue) {}
	}
	return o
}
