package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kmmndr/motion_watch/internal/motion"
)

const mqttConnectTimeout = 5 * time.Second

var ErrPublishTimeout = errors.New("publish timeout")

type MQTTOptions struct {
	Broker   string
	ClientID string
	Topic    string
	QoS      byte
}

type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher sends each report to <topic>/<category>/<event>.
type MQTTPublisher struct {
	client mqttClient
	topic  string
	qos    byte
	logger *slog.Logger
}

func NewMQTTPublisher(opts MQTTOptions, logger *slog.Logger) (*MQTTPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	broker := opts.Broker
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}

	clientOpts := mqtt.NewClientOptions()
	clientOpts.AddBroker(broker)
	clientOpts.SetClientID(opts.ClientID)
	clientOpts.SetAutoReconnect(true)
	clientOpts.SetConnectRetryInterval(2 * time.Second)
	clientOpts.SetMaxReconnectInterval(30 * time.Second)
	clientOpts.OnConnect = func(mqtt.Client) {
		logger.Info("mqtt connection established", "broker", broker, "client_id", opts.ClientID)
	}
	clientOpts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, will auto-reconnect", "broker", broker, "error", err)
	}

	client := mqtt.NewClient(clientOpts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connection to %s: %w", broker, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connection to %s: %w", broker, err)
	}

	return newMQTTPublisher(client, opts.Topic, opts.QoS, logger), nil
}

func newMQTTPublisher(client mqttClient, topic string, qos byte, logger *slog.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		topic:  strings.TrimRight(topic, "/"),
		qos:    qos,
		logger: logger,
	}
}

func (p *MQTTPublisher) Name() string {
	return "mqtt"
}

func (p *MQTTPublisher) Topic(r *motion.Report) string {
	return fmt.Sprintf("%s/%s/%s", p.topic, r.Category, r.Event)
}

func (p *MQTTPublisher) Publish(ctx context.Context, r *motion.Report) error {
	payload, err := r.JSON()
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	token := p.client.Publish(p.Topic(r), p.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPublishTimeout, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}

	return nil
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(250)
	return nil
}
