package endpoint

import (
	"net"
	"strconv"
	"strings"

	"domogateway/pkg/runtime/constant"
)

const (
	DefaultModbusPort = 502
	DefaultDobissPort = 1001
)

// Endpoint identifies one physical gateway. Many modules may share it.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func New(host string, port int, defaultPort int) (Endpoint, error) {
	host = strings.TrimSpace(host)
	if len(host) == 0 {
		return Endpoint{}, &constant.ConfigurationError{Field: "address.location", Reason: "host must not be blank"}
	}
	if port == 0 {
		port = defaultPort
	}
	if port < 1 || port > 65535 {
		return Endpoint{}, &constant.ConfigurationError{Field: "address.option.port", Reason: "port out of range " + strconv.Itoa(port)}
	}
	return Endpoint{Host: host, Port: port}, nil
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}
