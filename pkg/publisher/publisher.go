package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"domogateway/pkg/runtime"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/atomic"
	"k8s.io/klog/v2"
)

const (
	defaultTimeout        = time.Second
	defaultConnectTimeout = 5 * time.Second
	disconnectQuiesce     = 250
)

// CommandHandler executes the commands received for a device.
type CommandHandler func(ctx context.Context, deviceId string, commands []map[string]interface{}) ([]runtime.CommandResult, error)

type Option func(*Publisher)

// WithClient replaces the paho client built from the client options.
func WithClient(client mqtt.Client) Option {
	return func(p *Publisher) {
		p.client = client
	}
}

func WithClientOptions(opts *mqtt.ClientOptions) Option {
	return func(p *Publisher) {
		p.clientOptions = opts
	}
}

func WithQoS(qos byte) Option {
	return func(p *Publisher) {
		p.qos = qos
	}
}

func WithTimeout(d time.Duration) Option {
	return func(p *Publisher) {
		p.timeout = d
	}
}

// Publisher sends published channel values to the MQTT broker and feeds
// commands received on the command topic to a CommandHandler.
type Publisher struct {
	gatewayId     string
	client        mqtt.Client
	clientOptions *mqtt.ClientOptions
	qos           byte
	timeout       time.Duration
	connected     *atomic.Bool

	mu      sync.Mutex
	handler CommandHandler
}

func NewPublisher(gatewayId string, opts ...Option) *Publisher {
	p := &Publisher{
		gatewayId: gatewayId,
		qos:       1,
		timeout:   defaultTimeout,
		connected: atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		co := p.clientOptions
		if co == nil {
			co = mqtt.NewClientOptions()
		}
		co.SetAutoReconnect(true)
		co.SetConnectRetry(true)
		co.SetOnConnectHandler(p.onConnect)
		co.SetConnectionLostHandler(func(client mqtt.Client, err error) {
			p.connected.Store(false)
			klog.V(1).InfoS("Lost MQTT connection", "err", err)
		})
		p.client = mqtt.NewClient(co)
	}
	return p
}

// Connect waits a bounded time for the first connection. paho keeps retrying
// in the background when the broker is not reachable yet.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		klog.V(1).InfoS("MQTT broker not reachable yet, retrying in background")
		return nil
	}
	if err := token.Error(); err != nil {
		return err
	}
	if !p.connected.Load() && p.client.IsConnected() {
		p.onConnect(p.client)
	}
	return nil
}

func (p *Publisher) Connected() bool {
	return p.connected.Load()
}

func (p *Publisher) DataTopic(deviceId string) string {
	return fmt.Sprintf("data/%s/v1/%s", p.gatewayId, deviceId)
}

func (p *Publisher) CommandTopic() string {
	return fmt.Sprintf("cmd/%s/v1/+", p.gatewayId)
}

func (p *Publisher) ResultTopic(deviceId string) string {
	return fmt.Sprintf("cmd/%s/v1/%s/result", p.gatewayId, deviceId)
}

// PublishFunc binds the publish sink of a device to topic. Values are
// dropped while the broker is not connected. The sink does not wait for the
// broker acknowledgement, failures are logged once the token completes.
func (p *Publisher) PublishFunc(topic string) runtime.PublishFunc {
	return func(value runtime.ChannelValue) {
		if !p.connected.Load() {
			return
		}
		token, marshal, err := p.send(topic, p.payload(value))
		if err != nil {
			return
		}
		go func() {
			_ = p.await(topic, token, marshal)
		}()
	}
}

func (p *Publisher) Publish(topic string, values ...runtime.ChannelValue) error {
	if len(values) == 0 {
		return nil
	}
	return p.publishJSON(topic, p.payload(values...))
}

func (p *Publisher) payload(values ...runtime.ChannelValue) runtime.PublishData {
	ts := values[0].Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return runtime.NewPublishData(ts, values...)
}

func (p *Publisher) publishJSON(topic string, v interface{}) error {
	token, marshal, err := p.send(topic, v)
	if err != nil {
		return err
	}
	return p.await(topic, token, marshal)
}

func (p *Publisher) send(topic string, v interface{}) (mqtt.Token, []byte, error) {
	marshal, err := json.Marshal(v)
	if err != nil {
		klog.V(1).InfoS("Failed to marshal MQTT payload", "topic", topic, "err", err)
		return nil, nil, err
	}
	return p.client.Publish(topic, p.qos, false, marshal), marshal, nil
}

func (p *Publisher) await(topic string, token mqtt.Token, marshal []byte) error {
	if !token.WaitTimeout(p.timeout) {
		klog.V(1).InfoS("Failed to publish MQTT", "topic", topic, "err", "timeout")
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		klog.V(1).InfoS("Failed to publish MQTT", "topic", topic, "err", err)
		return err
	}
	klog.V(5).InfoS("Succeed to publish MQTT", "topic", topic, "data", string(marshal))
	return nil
}

// HandleCommands subscribes to the command topic of the gateway. The
// subscription is renewed on every reconnect.
func (p *Publisher) HandleCommands(handler CommandHandler) error {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()

	if !p.client.IsConnected() {
		return nil
	}
	return p.subscribe(p.client)
}

func (p *Publisher) onConnect(client mqtt.Client) {
	p.connected.Store(true)
	klog.V(1).InfoS("Connected to MQTT broker")
	if err := p.subscribe(client); err != nil {
		klog.V(1).InfoS("Failed to subscribe command topic", "topic", p.CommandTopic(), "err", err)
	}
}

func (p *Publisher) subscribe(client mqtt.Client) error {
	p.mu.Lock()
	handler := p.handler
	p.mu.Unlock()
	if handler == nil {
		return nil
	}

	token := client.Subscribe(p.CommandTopic(), p.qos, p.onMessage)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("subscribe to %s timed out", p.CommandTopic())
	}
	return token.Error()
}

func (p *Publisher) onMessage(client mqtt.Client, msg mqtt.Message) {
	deviceId := msg.Topic()[strings.LastIndex(msg.Topic(), "/")+1:]
	if len(deviceId) == 0 {
		return
	}

	var commands []map[string]interface{}
	if err := json.Unmarshal(msg.Payload(), &commands); err != nil {
		klog.V(3).InfoS("Failed to parse command", "topic", msg.Topic(), "err", err)
		return
	}

	p.mu.Lock()
	handler := p.handler
	p.mu.Unlock()
	if handler == nil {
		return
	}

	// paho delivers messages from a single goroutine; a slow gateway must
	// not hold it.
	go func() {
		results, err := handler(context.Background(), deviceId, commands)
		if err != nil {
			klog.V(2).InfoS("Failed to handle command", "deviceId", deviceId, "err", err)
			_ = p.publishJSON(p.ResultTopic(deviceId), map[string]string{"error": err.Error()})
			return
		}
		_ = p.publishJSON(p.ResultTopic(deviceId), results)
	}()
}

func (p *Publisher) Close(ctx context.Context) error {
	if p.client.IsConnected() {
		token := p.client.Unsubscribe(p.CommandTopic())
		token.WaitTimeout(p.timeout)
		p.client.Disconnect(disconnectQuiesce)
	}
	p.connected.Store(false)
	return nil
}
