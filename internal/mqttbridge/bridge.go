// Package mqttbridge republishes the core's subscription bus onto an
// MQTT broker: the same connect/reconnect/publish shape used for
// detection-event publishing elsewhere, generalized here to pulsed's
// (facility, operation, index) events.
package mqttbridge

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pulsed/pulsed/internal/sndcore"
)

// Config configures the bridge's broker connection. BrokerURL empty
// disables the bridge entirely (Start becomes a no-op).
type Config struct {
	BrokerURL string
	ClientID string
	Username string
	Password string
	Topic string // base topic; events publish to Topic + "/" + facility
}

// Bridge subscribes to a Core's Bus and republishes every delivered
// event as an MQTT message, so external automation can react to sink
// creation, volume changes, and client churn without speaking the
// native protocol at all.
type Bridge struct {
	cfg Config
	log *slog.Logger
	client mqtt.Client

	mu sync.Mutex
	stopped chan struct{}
}

// New builds a bridge, unconnected until Start is called.
func New(cfg Config, log *slog.Logger) *Bridge {
	return &Bridge{cfg: cfg, log: log, stopped: make(chan struct{})}
}

// Start connects to the broker and subscribes bus to publish every
// event it delivers. A zero BrokerURL is treated as "bridge disabled".
func (b *Bridge) Start(ctx context.Context, bus *sndcore.Bus) (sndcore.Handle, error) {
	if b.cfg.BrokerURL == "" {
 return sndcore.Handle{}, nil
	}
	if err := b.connect(); err != nil {
 return sndcore.Handle{}, fmt.Errorf("mqttbridge: connect: %w", err)
	}
	handle := bus.Subscribe(sndcore.MaskAll, b.onEvent)
	return handle, nil
}

func (b *Bridge) connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.BrokerURL)
	clientID := b.cfg.ClientID
	if clientID == "" {
 clientID = "pulsed"
	}
	opts.SetClientID(clientID)
	opts.SetUsername(b.cfg.Username)
	opts.SetPassword(b.cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectionLostHandler(b.onConnectionLost)

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	if !token.WaitTimeout(30 * time.Second) {
 return fmt.Errorf("connection timeout")
	}
	return token.Error()
}

func (b *Bridge) onConnectionLost(_ mqtt.Client, err error) {
	if b.log != nil {
 b.log.Warn("mqtt connection lost", "broker", b.cfg.BrokerURL, "error", err)
	}
}

// onEvent is the sndcore.SubscriptionCallback invoked from the
// mainloop's deferred-event phase; it must never block,
// so Publish uses QoS 0 fire-and-forget rather than waiting on the
// delivery token.
func (b *Bridge) onEvent(ev sndcore.Event) {
	if b.client == nil || !b.client.IsConnected() {
 return
	}
	topic := b.cfg.Topic + "/" + ev.Facility.String()
	payload := ev.Operation.String() + " " + strconv.FormatUint(uint64(ev.Index), 10)
	b.client.Publish(topic, 0, false, payload)
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.client != nil && b.client.IsConnected() {
 b.client.Disconnect(250)
	}
	select {
	case <-b.stopped:
	default:
 close(b.stopped)
	}
}
