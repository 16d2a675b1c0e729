package runtime

import (
	"context"

	"domogateway/pkg/endpoint"
	"domogateway/pkg/transport"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"
)

// Client speaks Modbus/TCP over a transport.Client. It holds no connection
// and no lock: callers serialize access to the endpoint.
type Client struct {
	Endpoint      endpoint.Endpoint
	UnitId        uint8
	Transport     transport.Client
	transactionId *atomic.Uint32
}

func NewClient(ep endpoint.Endpoint, unitId uint8, t transport.Client) *Client {
	if unitId == 0 {
		unitId = DefaultUnitId
	}
	return &Client{
		Endpoint:      ep,
		UnitId:        unitId,
		Transport:     t,
		transactionId: atomic.NewUint32(0),
	}
}

func (c *Client) nextTransactionId() uint16 {
	return uint16(c.transactionId.Inc())
}

func (c *Client) ask(ctx context.Context, pdu []byte) ([]byte, error) {
	id := c.nextTransactionId()
	resps, err := c.Transport.RoundTrip(ctx, c.Endpoint, transport.Exchange{
		Request: EncodeADU(id, c.UnitId, pdu),
		Read:    ReadADU,
	})
	if err != nil {
		return nil, err
	}
	resp, err := DecodeADU(resps[0], id, c.UnitId)
	if err != nil {
		klog.V(3).InfoS("Failed to decode modbus response", "endpoint", c.Endpoint.String(), "request", describe(pdu), "err", err)
		return nil, err
	}
	return resp, nil
}

// ReadHoldingRegisters reads count registers starting at start.
func (c *Client) ReadHoldingRegisters(ctx context.Context, start, count uint16) ([]int16, error) {
	pdu, err := EncodeReadRequest(start, count)
	if err != nil {
		return nil, err
	}
	resp, err := c.ask(ctx, pdu)
	if err != nil {
		return nil, err
	}
	return DecodeRegisters(resp, int(count))
}

// WriteRegisterPair writes (value, 0) at register.
func (c *Client) WriteRegisterPair(ctx context.Context, register uint16, value uint16) error {
	resp, err := c.ask(ctx, EncodeWriteRequest(register, value))
	if err != nil {
		return err
	}
	return DecodeWriteResponse(resp, register, 2)
}
