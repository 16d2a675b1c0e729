package dantherm

import (
	"net"
	"strconv"
	"sync"

	"domogateway/pkg/endpoint"
	dantherm "domogateway/pkg/protocol/dantherm/runtime"
	"github.com/pkg/errors"
	"github.com/tbrandon/mbserver"
	"k8s.io/klog/v2"
)

const simulatedSerialNumber = 2017061100

// simulatedValues are the values of a unit at rest in a living room.
var simulatedValues = map[string]float64{
	dantherm.FanSpeed:        2,
	dantherm.CurrentUnitMode: 1,
	dantherm.ActiveUnitMode:  4,
	dantherm.FanRpm1:         2000,
	dantherm.FanRpm2:         2005,
	dantherm.Temperature1:    19.2,
	dantherm.Temperature2:    18.2,
	dantherm.Temperature3:    18.6,
	dantherm.Temperature4:    19.0,
}

// Simulator is an HCV5 register bank served by an in-process Modbus slave on
// the loopback interface. Writes from commands land in the bank.
type Simulator struct {
	mu     sync.Mutex
	server *mbserver.Server
	ep     endpoint.Endpoint
}

func NewSimulator() (*Simulator, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, errors.Wrap(err, "reserve simulator port")
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	server := mbserver.NewServer()
	address := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	if err = server.ListenTCP(address); err != nil {
		return nil, errors.Wrapf(err, "listen simulator on %s", address)
	}
	s := &Simulator{server: server, ep: endpoint.Endpoint{Host: "127.0.0.1", Port: port}}
	for id, v := range simulatedValues {
		s.Set(id, v)
	}
	low, high := uint32(simulatedSerialNumber)&0xFFFF, uint32(simulatedSerialNumber)>>16
	s.server.HoldingRegisters[5] = uint16(low)
	s.server.HoldingRegisters[6] = uint16(high)
	klog.V(1).InfoS("Started HCV5 simulator", "endpoint", s.ep.String())
	return s, nil
}

func (s *Simulator) Endpoint() endpoint.Endpoint {
	return s.ep
}

// Set stores v in the registers of channelId.
func (s *Simulator) Set(channelId string, v float64) {
	r, ok := dantherm.LookupRegister(channelId)
	if !ok {
		return
	}
	a, b := r.Encode(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server.HoldingRegisters[r.Address] = uint16(a)
	s.server.HoldingRegisters[r.Address+1] = uint16(b)
}

func (s *Simulator) Get(channelId string) float64 {
	r, ok := dantherm.LookupRegister(channelId)
	if !ok {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, _ := r.Decode([]int16{int16(s.server.HoldingRegisters[r.Address]), int16(s.server.HoldingRegisters[r.Address+1])})
	return v
}

func (s *Simulator) Close() {
	s.server.Close()
	klog.V(1).InfoS("Stopped HCV5 simulator", "endpoint", s.ep.String())
}
