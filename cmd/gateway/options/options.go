package options

import (
	"time"

	"domogateway/cmd/gateway/config"
	"domogateway/pkg/device"
	"domogateway/pkg/endpoint"
	"domogateway/pkg/gateway"
	"domogateway/pkg/generic"
	baseoptions "domogateway/pkg/generic/options"
	"domogateway/pkg/publisher"
	"domogateway/pkg/runtime"
	"domogateway/pkg/storage"
	"domogateway/pkg/transport"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

type MqttOptions struct {
	Broker   string `json:"broker"`
	ClientId string `json:"clientId"`
	Username string `json:"username"`
	Password string `json:"password"`
	QoS      uint8  `json:"qos"`
}

type Options struct {
	Port      string        `json:"port"`
	Wait      time.Duration `json:"graceful-timeout"`
	CertFile  string        `json:"certFile"`
	KeyFile   string        `json:"keyFile"`
	StorePath string        `json:"storePath"`

	Mqtt MqttOptions `json:"mqtt"`

	LockAcquireTimeout     time.Duration `json:"lockAcquireTimeout"`
	ConnectTimeout         time.Duration `json:"connectTimeout"`
	IoTimeout              time.Duration `json:"ioTimeout"`
	HeartBeatInterval      time.Duration `json:"heartBeatInterval"`
	MaxConsecutiveFailures int           `json:"maxConsecutiveFailures"`

	baseoptions.BaseOptions
}

const (
	_defaultPort                   = "32200"
	_defaultWait                   = 15 * time.Second
	_defaultMqttClientId           = "domogateway"
	_defaultMqttQoS                = 1
	_defaultLockAcquireTimeout     = 5 * time.Second
	_defaultConnectTimeout         = 5 * time.Second
	_defaultIoTimeout              = 5 * time.Second
	_defaultHeartBeatInterval      = 15 * time.Second
	_defaultMaxConsecutiveFailures = 5
)

func NewDefaultOptions() *Options {
	return &Options{
		Port: _defaultPort,
		Wait: _defaultWait,
		Mqtt: MqttOptions{
			ClientId: _defaultMqttClientId,
			QoS:      _defaultMqttQoS,
		},
		LockAcquireTimeout:     _defaultLockAcquireTimeout,
		ConnectTimeout:         _defaultConnectTimeout,
		IoTimeout:              _defaultIoTimeout,
		HeartBeatInterval:      _defaultHeartBeatInterval,
		MaxConsecutiveFailures: _defaultMaxConsecutiveFailures,
		BaseOptions:            baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Port, "port", "P", o.Port, "Port exposed")
	fs.DurationVar(&o.Wait, "graceful-timeout", o.Wait, "The duration for which the server gracefully wait for existing connections to finish - e.g. 15s or 1m")
	fs.StringVar(&o.CertFile, "tls-cert-file", o.CertFile, "File containing the x509 certificate for HTTPS. Plain HTTP is served when empty")
	fs.StringVar(&o.KeyFile, "tls-private-key-file", o.KeyFile, "File containing the x509 private key matching --tls-cert-file")
	fs.StringVar(&o.StorePath, "store-path", o.StorePath, "Directory holding the device and gateway documents, defaults to ~/.domogateway")

	fs.StringVar(&o.Mqtt.Broker, "mqtt-broker", o.Mqtt.Broker, "MQTT broker url, e.g. tcp://127.0.0.1:1883. Channel values are not published when empty")
	fs.StringVar(&o.Mqtt.ClientId, "mqtt-client-id", o.Mqtt.ClientId, "MQTT client id")
	fs.StringVar(&o.Mqtt.Username, "mqtt-username", o.Mqtt.Username, "MQTT username")
	fs.StringVar(&o.Mqtt.Password, "mqtt-password", o.Mqtt.Password, "MQTT password")
	fs.Uint8Var(&o.Mqtt.QoS, "mqtt-qos", o.Mqtt.QoS, "QoS of published channel values and command results")

	fs.DurationVar(&o.LockAcquireTimeout, "lock-acquire-timeout", o.LockAcquireTimeout, "How long a command waits for exclusive access to a busy gateway")
	fs.DurationVar(&o.ConnectTimeout, "connect-timeout", o.ConnectTimeout, "Timeout of opening a TCP connection to a gateway")
	fs.DurationVar(&o.IoTimeout, "io-timeout", o.IoTimeout, "Timeout of a single request/response exchange with a gateway")
	fs.DurationVar(&o.HeartBeatInterval, "heartbeat-interval", o.HeartBeatInterval, "Interval of reconnecting unreachable devices")
	fs.IntVar(&o.MaxConsecutiveFailures, "max-consecutive-failures", o.MaxConsecutiveFailures, "Failed polls after which a device reports collectingError, 0 disables it")
}

func (o *Options) Config(stopCh <-chan struct{}) (*config.Config, error) {
	c := &config.Config{
		CertFile: o.CertFile,
		KeyFile:  o.KeyFile,
	}

	gatewayMgr := gateway.NewGatewayManager(stopCh, gateway.WithStorePath(o.StorePath))
	if err := gatewayMgr.Init(); err != nil {
		return nil, err
	}
	meta, _ := gatewayMgr.GetGatewayMeta()
	c.GatewayMgr = gatewayMgr

	mqttOpts := mqtt.NewClientOptions().SetClientID(o.Mqtt.ClientId).SetUsername(o.Mqtt.Username).SetPassword(o.Mqtt.Password)
	if len(o.Mqtt.Broker) > 0 {
		mqttOpts.AddBroker(o.Mqtt.Broker)
	}
	pub := publisher.NewPublisher(meta.ID, publisher.WithClientOptions(mqttOpts), publisher.WithQoS(o.Mqtt.QoS))
	if len(o.Mqtt.Broker) > 0 {
		if err := pub.Connect(); err != nil {
			return nil, err
		}
	} else {
		klog.V(1).InfoS("No MQTT broker configured, channel values are kept locally")
	}

	store, err := generic.NewStore(o.StorePath, storage.StoreGroupToString[storage.StoreGroupDevice], storage.Devices, generic.DeviceTypeObjectMap)
	if err != nil {
		return nil, err
	}

	deviceMgr := device.NewManager(store, pub, stopCh,
		device.WithLockRegistry(endpoint.NewLockRegistry(endpoint.WithAcquireTimeout(o.LockAcquireTimeout))),
		device.WithTransport(transport.NewTcpClient(o.ConnectTimeout, o.IoTimeout)),
		device.WithHeartBeatInterval(o.HeartBeatInterval),
		device.WithMaxConsecutiveFailures(o.MaxConsecutiveFailures),
		device.WithCloser(runtime.LabeledCloser{Label: "mqtt", Closer: pub.Close}),
	)
	deviceMgr.Init()
	c.DeviceMgr = deviceMgr

	if err := pub.HandleCommands(deviceMgr.HandleCommands); err != nil {
		klog.V(1).InfoS("Failed to subscribe command topic", "topic", pub.CommandTopic(), "err", err)
	}

	return c, nil
}
