package runtime

import (
	"context"

	"domogateway/pkg/endpoint"
	"domogateway/pkg/transport"
	"k8s.io/klog/v2"
)

// Client exchanges frames with a dobiss gateway. It holds no lock: callers
// serialize access to the endpoint.
type Client struct {
	Endpoint  endpoint.Endpoint
	Transport transport.Client
}

func NewClient(ep endpoint.Endpoint, t transport.Client) *Client {
	return &Client{Endpoint: ep, Transport: t}
}

// QueryStatus reads the channel values of m.
func (c *Client) QueryStatus(ctx context.Context, m Module) ([]int, error) {
	resps, err := c.Transport.RoundTrip(ctx, c.Endpoint, transport.Exchange{
		Request: EncodeStatusQuery(m.Address()),
		Read:    transport.AskAtLeast(StatusOffset+m.Channels(), StatusResponseLength),
	})
	if err != nil {
		return nil, err
	}
	values, err := m.DecodeStatus(resps[0])
	if err != nil {
		klog.V(3).InfoS("Failed to decode status", "module", m.Name(), "address", m.Address(), "err", err)
		return nil, err
	}
	return values, nil
}

// SendCommand writes the header and the payload on one connection.
func (c *Client) SendCommand(ctx context.Context, m Module, index int, value int) error {
	header, payload, err := m.EncodeCommand(index, value)
	if err != nil {
		return err
	}
	_, err = c.Transport.RoundTrip(ctx, c.Endpoint,
		transport.Exchange{Request: header, Read: transport.AskAtLeast(1, HeaderAckLength)},
		transport.Exchange{Request: payload, Read: transport.AskAtLeast(1, CommandAckLength)},
	)
	return err
}
