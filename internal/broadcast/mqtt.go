package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"lxcloud/internal/config"
	"lxcloud/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// MQTTPublisher republishes screen updates to an MQTT topic so external
// viewer relays can subscribe without connecting to this process.
// Publishing is fire and forget, same as the hub.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

func NewMQTTPublisher(cfg *config.MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(1 * time.Minute)
	opts.SetConnectTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("MQTT broadcast client connected", zap.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		logger.Warn("MQTT broadcast connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)

	token := client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	return &MQTTPublisher{client: client, topic: cfg.Topic}, nil
}

func (p *MQTTPublisher) Publish(event ScreenUpdate) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal screen update", zap.Error(err))
		return
	}

	// QoS 0: viewers that miss an event catch up on the next one.
	p.client.Publish(p.topic, 0, false, payload)
}

func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// Fanout publishes one event to several publishers.
type Fanout []Publisher

func (f Fanout) Publish(event ScreenUpdate) {
	for _, p := range f {
		p.Publish(event)
	}
}
