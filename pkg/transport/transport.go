package transport

import (
	"context"
	"io"
	"net"
	"time"

	"domogateway/pkg/endpoint"
	"domogateway/pkg/runtime/constant"
	"domogateway/pkg/utils/binutil"
	"k8s.io/klog/v2"
)

const (
	DefaultConnectTimeout = 200 * time.Millisecond
	DefaultIOTimeout      = 2 * time.Second
)

// ResponseReader consumes one response frame from the connection.
type ResponseReader func(r io.Reader) ([]byte, error)

// Exchange is one request frame and the reader of its response.
// A nil Read means the request expects no answer.
type Exchange struct {
	Request []byte
	Read    ResponseReader
}

// Client performs request/response exchanges with a gateway. Every call owns
// a fresh connection which is closed before it returns.
type Client interface {
	RoundTrip(ctx context.Context, ep endpoint.Endpoint, exchanges ...Exchange) ([][]byte, error)
}

var _ Client = (*TcpClient)(nil)

type TcpClient struct {
	ConnectTimeout time.Duration
	IOTimeout      time.Duration
}

func NewTcpClient(connectTimeout, ioTimeout time.Duration) *TcpClient {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if ioTimeout <= 0 {
		ioTimeout = DefaultIOTimeout
	}
	return &TcpClient{ConnectTimeout: connectTimeout, IOTimeout: ioTimeout}
}

// RoundTrip dials ep, runs the exchanges in order on the same connection and
// always closes it. Connections are never pooled: the gateways drop idle
// sessions server side. Errors are never retried here.
func (tc *TcpClient) RoundTrip(ctx context.Context, ep endpoint.Endpoint, exchanges ...Exchange) ([][]byte, error) {
	dialer := net.Dialer{Timeout: tc.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", ep.String())
	if err != nil {
		klog.V(3).InfoS("Failed to connect gateway", "endpoint", ep.String(), "err", err)
		return nil, &constant.TransportError{Op: "dial", Endpoint: ep.String(), Err: err}
	}
	defer conn.Close()

	responses := make([][]byte, 0, len(exchanges))
	for _, exchange := range exchanges {
		resp, err := tc.ask(ctx, conn, exchange)
		if err != nil {
			return nil, &constant.TransportError{Op: "exchange", Endpoint: ep.String(), Err: err}
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

func (tc *TcpClient) ask(ctx context.Context, conn net.Conn, exchange Exchange) ([]byte, error) {
	deadline := time.Now().Add(tc.IOTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	klog.V(5).InfoS("Write frame", "remote", conn.RemoteAddr().String(), "frame", binutil.Hex(exchange.Request))
	if _, err := conn.Write(exchange.Request); err != nil {
		return nil, err
	}
	if exchange.Read == nil {
		return nil, nil
	}
	resp, err := exchange.Read(conn)
	if err != nil {
		return nil, err
	}
	klog.V(5).InfoS("Read frame", "remote", conn.RemoteAddr().String(), "frame", binutil.Hex(resp))
	return resp, nil
}

// AskAtLeast reads at least min and at most max bytes. A peer closing the
// connection early yields the short frame so the codec can reject it.
func AskAtLeast(min, max int) ResponseReader {
	return func(r io.Reader) ([]byte, error) {
		buf := make([]byte, max)
		n, err := io.ReadAtLeast(r, buf, min)
		if err != nil {
			if n > 0 && (err == io.ErrUnexpectedEOF || err == io.EOF) {
				return buf[:n], nil
			}
			return nil, err
		}
		return buf[:n], nil
	}
}

// AskFull reads exactly n bytes.
func AskFull(n int) ResponseReader {
	return AskAtLeast(n, n)
}
