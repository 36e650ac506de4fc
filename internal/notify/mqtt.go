package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"wisefido-floorplan/internal/config"
	"wisefido-floorplan/internal/domain"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttPublisher paho 客户端中用到的部分（测试中替换）
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier 把合并事件发布到 <topic>/<floor_plan_id>，供楼层看板等订阅方刷新
type MQTTNotifier struct {
	client mqttPublisher
	topic  string
	qos    byte
}

func NewMQTTNotifier(client mqttPublisher, topic string, qos byte) *MQTTNotifier {
	return &MQTTNotifier{client: client, topic: topic, qos: qos}
}

// Connect 连接 MQTT broker
func Connect(cfg *config.MQTTConfig) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return client, nil
}

// Topic 事件对应的主题
func (n *MQTTNotifier) Topic(floorPlanID string) string {
	return n.topic + "/" + floorPlanID
}

func (n *MQTTNotifier) PublishMerge(ctx context.Context, event domain.MergeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal merge event: %w", err)
	}

	topic := n.Topic(event.FloorPlanID)
	token := n.client.Publish(topic, n.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return fmt.Errorf("failed to publish to topic %s: %w", topic, ctx.Err())
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (n *MQTTNotifier) Name() string {
	return "mqtt"
}
