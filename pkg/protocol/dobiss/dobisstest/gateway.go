// Package dobisstest provides an in-process dobiss gateway for tests.
package dobisstest

import (
	"io"
	"net"
	"strconv"
	"sync"

	"domogateway/pkg/endpoint"
	"go.uber.org/atomic"
)

// Command is a decoded command payload received by the gateway.
type Command struct {
	Type    byte
	Address int
	Index   int
	Value   byte
	Aux     byte
}

// Gateway answers status queries from a per address status table and records
// commands. Like the real unit it serves one connection at a time.
type Gateway struct {
	ln     net.Listener
	mu     sync.Mutex
	status map[int][]byte
	cmds   []Command

	Connections *atomic.Int32
	Active      *atomic.Int32
	MaxActive   *atomic.Int32
	// ShortStatus truncates status responses to the given length and drops the
	// connection when > 0.
	ShortStatus *atomic.Int32
}

func NewGateway() (*Gateway, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	g := &Gateway{
		ln:          ln,
		status:      make(map[int][]byte),
		Connections: atomic.NewInt32(0),
		Active:      atomic.NewInt32(0),
		MaxActive:   atomic.NewInt32(0),
		ShortStatus: atomic.NewInt32(0),
	}
	go g.serve()
	return g, nil
}

func (g *Gateway) Endpoint() endpoint.Endpoint {
	host, port, _ := net.SplitHostPort(g.ln.Addr().String())
	p, _ := strconv.Atoi(port)
	return endpoint.Endpoint{Host: host, Port: p}
}

func (g *Gateway) Close() error {
	return g.ln.Close()
}

// SetStatus sets the channel bytes reported at offset 32 for a module address.
func (g *Gateway) SetStatus(address int, channels ...byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status[address] = append([]byte(nil), channels...)
}

func (g *Gateway) Status(address int) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]byte(nil), g.status[address]...)
}

func (g *Gateway) Commands() []Command {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Command(nil), g.cmds...)
}

func (g *Gateway) serve() {
	for {
		conn, err := g.ln.Accept()
		if err != nil {
			return
		}
		go g.handle(conn)
	}
}

func (g *Gateway) handle(conn net.Conn) {
	defer conn.Close()
	g.Connections.Inc()
	n := g.Active.Inc()
	for {
		m := g.MaxActive.Load()
		if n <= m || g.MaxActive.CAS(m, n) {
			break
		}
	}
	defer g.Active.Dec()

	for {
		header := make([]byte, 16)
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		address := int(header[3])
		switch header[1] {
		case 0x01:
			resp := make([]byte, 128)
			copy(resp[32:], g.Status(address))
			if short := int(g.ShortStatus.Load()); short > 0 {
				_, _ = conn.Write(resp[:short])
				return
			}
			if _, err := conn.Write(resp); err != nil {
				return
			}
		case 0x02:
			if _, err := conn.Write(make([]byte, 32)); err != nil {
				return
			}
			payload := make([]byte, 8)
			if _, err := io.ReadFull(conn, payload); err != nil {
				return
			}
			g.apply(Command{Type: header[2], Address: int(payload[0]), Index: int(payload[1]) + 1, Value: payload[2], Aux: payload[5]})
			if _, err := conn.Write(make([]byte, 64)); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (g *Gateway) apply(c Command) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cmds = append(g.cmds, c)
	st := g.status[c.Address]
	for len(st) < c.Index {
		st = append(st, 0)
	}
	if c.Type == 0xFF {
		st[c.Index-1] = c.Aux
	} else {
		st[c.Index-1] = c.Value
	}
	g.status[c.Address] = st
}
