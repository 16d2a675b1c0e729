package runtime

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"domogateway/pkg/endpoint"
	"domogateway/pkg/runtime/constant"
	"domogateway/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbrandon/mbserver"
)

func startSlave(t *testing.T) (*mbserver.Server, endpoint.Endpoint) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	s := mbserver.NewServer()
	require.NoError(t, s.ListenTCP(ln.Addr().String()))
	t.Cleanup(s.Close)
	return s, endpoint.Endpoint{Host: "127.0.0.1", Port: port}
}

func TestClientReadHoldingRegisters(t *testing.T) {
	s, ep := startSlave(t)
	a, b := SplitFloat32(19.2)
	s.HoldingRegisters[133] = uint16(a)
	s.HoldingRegisters[134] = uint16(b)

	c := NewClient(ep, 0, transport.NewTcpClient(time.Second, time.Second))
	regs, err := c.ReadHoldingRegisters(context.Background(), 133, 2)
	require.NoError(t, err)
	assert.Equal(t, float32(19.2), CombineToFloat32(regs[0], regs[1]))

	// transaction ids advance per request
	_, err = c.ReadHoldingRegisters(context.Background(), 133, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), c.transactionId.Load())
}

func TestClientWriteRegisterPair(t *testing.T) {
	s, ep := startSlave(t)
	s.HoldingRegisters[325] = 7

	c := NewClient(ep, 1, transport.NewTcpClient(time.Second, time.Second))
	require.NoError(t, c.WriteRegisterPair(context.Background(), 324, 3))
	assert.Equal(t, uint16(3), s.HoldingRegisters[324])
	assert.Equal(t, uint16(0), s.HoldingRegisters[325])

	regs, err := c.ReadHoldingRegisters(context.Background(), 324, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(3), CombineToInt32(regs[0], regs[1]))
}

func TestClientOutOfRangeIsProtocolError(t *testing.T) {
	_, ep := startSlave(t)
	c := NewClient(ep, 1, transport.NewTcpClient(time.Second, time.Second))
	_, err := c.ReadHoldingRegisters(context.Background(), 65535, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, constant.ErrProtocol))
}
