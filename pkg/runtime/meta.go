package runtime

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

var (
	ErrNotObject = fmt.Errorf("object does not implement the Object interfaces")
)

type RunObject interface {
	DeepCopyObject() RunObject
}

type ObjectMetaAccessor interface {
	GetObjectMeta() Object
}

type Object interface {
	GetName() string
	SetName(string)
	GetID() string
	SetID(string)
	GetVersion() string
	SetVersion(string)
	GetModTime() time.Time
	SetModTime(time.Time)
}

// Device is a configured field device as persisted by the store.
type Device interface {
	Object
	RunObject
	GetDeviceCode() string
	SetDeviceCode(string)
	GetDeviceType() string
	SetDeviceType(string)
	GetCollectStatus() string
	SetCollectStatus(string)
	GetTopic() string
	SetTopic(string)
	// GetChannels lists the channels in publish order.
	GetChannels() []Channel
	GetChannel(id string) (Channel, bool)
	// IndexDevice rebuilds lookup tables after decoding.
	IndexDevice()
}

// Broker runs the communication of one device: polling, command handling
// and the cache between them.
type Broker interface {
	Collect(ctx context.Context)
	// Destroy stops polling and waits for an exchange in flight.
	Destroy(ctx context.Context)
	HandleCommand(ctx context.Context, channelId string, cmd interface{}) CommandResult
	Snapshot() []ChannelValue
}

type LabeledCloser struct {
	Label  string
	Closer func(context.Context) error
}

type ResponseModel struct {
	Devices interface{} `json:"devices,omitempty"`
}

type ObjectMeta struct {
	Name    string    `json:"name"`
	ID      string    `json:"id"`
	Version string    `json:"eTag"`
	ModTime time.Time `json:"modTime"`
}

type PublishMeta struct {
	Topic string `json:"topic,omitempty"`
}

type DeviceMeta struct {
	ObjectMeta
	PublishMeta
	DeviceCode    string `json:"deviceCode"`
	DeviceType    string `json:"deviceType"`
	CollectStatus string `json:"collectStatus"`
}

type CreateOptions struct {
	Query url.Values
}

type GetOptions struct {
	Version string
	Query   url.Values
}

type ListOptions struct {
	Filter map[string]interface{}
	Query  url.Values
}

type UpdateOptions struct {
	Version string
	Query   url.Values
}

type DeleteOptions struct {
	Version string
	Query   url.Values
}

func (d *DeviceMeta) GetDeviceCode() string          { return d.DeviceCode }
func (d *DeviceMeta) SetDeviceCode(s string)         { d.DeviceCode = s }
func (d *DeviceMeta) GetDeviceType() string          { return d.DeviceType }
func (d *DeviceMeta) SetDeviceType(s string)         { d.DeviceType = s }
func (d *DeviceMeta) GetCollectStatus() string       { return d.CollectStatus }
func (d *DeviceMeta) SetCollectStatus(status string) { d.CollectStatus = status }
func (d *DeviceMeta) GetTopic() string               { return d.Topic }
func (d *DeviceMeta) SetTopic(topic string)          { d.Topic = topic }

func (meta *ObjectMeta) GetName() string              { return meta.Name }
func (meta *ObjectMeta) SetName(name string)          { meta.Name = name }
func (meta *ObjectMeta) GetID() string                { return meta.ID }
func (meta *ObjectMeta) SetID(id string)              { meta.ID = id }
func (meta *ObjectMeta) GetVersion() string           { return meta.Version }
func (meta *ObjectMeta) SetVersion(version string)    { meta.Version = version }
func (meta *ObjectMeta) GetModTime() time.Time        { return meta.ModTime }
func (meta *ObjectMeta) SetModTime(modTime time.Time) { meta.ModTime = modTime }

func Accessor(obj interface{}) (Object, error) {
	switch t := obj.(type) {
	case Object:
		return t, nil
	case ObjectMetaAccessor:
		if m := t.GetObjectMeta(); m != nil {
			return m, nil
		}
		return nil, ErrNotObject
	default:
		return nil, ErrNotObject
	}
}

func AccessorDevice(obj interface{}) (Device, error) {
	switch t := obj.(type) {
	case Device:
		return t, nil
	default:
		return nil, ErrNotObject
	}
}
