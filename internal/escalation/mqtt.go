package escalation

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/config"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
)

// Publisher sends an escalation payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// MQTTPublisher publishes escalation events to an MQTT broker. The
// connection is managed by autopaho and reconnects in the background.
type MQTTPublisher struct {
	cfg config.MQTTConfig
	log *logging.Logger
	cm  *autopaho.ConnectionManager
}

// NewMQTTPublisher creates a publisher but does not connect.
func NewMQTTPublisher(cfg config.MQTTConfig, log *logging.Logger) *MQTTPublisher {
	if log == nil {
		log = logging.Nop()
	}
	return &MQTTPublisher{cfg: cfg, log: log.Sub("escalation")}
}

// Start connects to the broker. It waits up to 10s for the first
// connection; after that autopaho keeps retrying until ctx is cancelled.
func (p *MQTTPublisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}
	clientID := p.cfg.ClientID
	if clientID == "" {
		clientID = "aegis-agent"
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: p.cfg.Username,
		ConnectPassword: []byte(p.cfg.Password),
		OnConnectionUp: func(*autopaho.ConnectionManager, *paho.Connack) {
			p.log.Info().Str("broker", p.cfg.Broker).Msg("mqtt connected")
		},
		OnConnectError: func(err error) {
			p.log.Warn().Err(err).Msg("mqtt connection error")
		},
		ClientConfig: paho.ClientConfig{ClientID: clientID},
	}
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	p.cm = cm

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		p.log.Warn().Err(err).Msg("mqtt initial connection timed out, retrying in background")
	}
	return nil
}

// Publish sends payload with QoS 1, unretained.
func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	if p.cm == nil {
		return errors.New("mqtt publisher not started")
	}
	if _, err := p.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     1,
	}); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}

// Stop disconnects from the broker.
func (p *MQTTPublisher) Stop(ctx context.Context) error {
	if p.cm == nil {
		return nil
	}
	return p.cm.Disconnect(ctx)
}
