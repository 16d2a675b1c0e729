package constant

import (
	"errors"
	"fmt"
)

var (
	ErrDeviceType          = errors.New("unsupported device type")
	ErrConnectDevice       = errors.New("unable to connect to device")
	ErrDeviceServerClosed  = errors.New("device server closed")
	ErrDeviceEmptyVariable = errors.New("device has no enabled module")
	ErrChannelNotFound     = errors.New("channel not found")
	ErrChannelReadOnly     = errors.New("channel is read only")
	ErrInvalidCommand      = errors.New("invalid command")

	ErrConfiguration = errors.New("configuration error")
	ErrTransport     = errors.New("transport error")
	ErrProtocol      = errors.New("protocol error")
	ErrBusy          = errors.New("gateway busy")
)

// ConfigurationError rejects a device setup. It is reported once and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// TransportError carries the I/O cause of a failed connect, write or read.
type TransportError struct {
	Op       string
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Op, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// BusyError is returned when the endpoint lock could not be acquired in time.
type BusyError struct {
	Endpoint string
	Err      error
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("gateway %s busy: %v", e.Endpoint, e.Err)
}

func (e *BusyError) Unwrap() error { return e.Err }

func (e *BusyError) Is(target error) bool { return target == ErrBusy }

// ProtocolError reports a malformed or short frame.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol error: " + e.Reason }

func (e *ProtocolError) Is(target error) bool { return target == ErrProtocol }

func NewProtocolError(format string, args ...interface{}) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}
