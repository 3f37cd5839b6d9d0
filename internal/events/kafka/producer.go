package kafka

import (
	"encoding/json"
	"time"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
	"github.com/orbitcart/auth-service/internal/events"
)

const eventSource = "/orbitcart/auth-service"

// Producer publishes auth events to kafka asynchronously. Send failures are
// logged and dropped; the auth flow that raised the event has already
// committed its state change.
type Producer struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *zap.Logger
}

func NewProducer(cfg config.KafkaConfig, logger *zap.Logger) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, err
	}

	p := &Producer{producer: producer, topic: cfg.Topic, logger: logger}
	go p.drainErrors()
	return p, nil
}

func (p *Producer) Publish(eventType events.EventType, userID uuid.UUID, data interface{}) {
	event := events.Event{
		SpecVersion: "1.0",
		Type:        eventType,
		Source:      eventSource,
		Subject:     userID.String(),
		ID:          uuid.NewString(),
		Time:        time.Now().UTC(),
		Data:        data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal event", zap.String("type", string(eventType)), zap.Error(err))
		return
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(userID.String()),
		Value: sarama.ByteEncoder(payload),
	}
}

func (p *Producer) drainErrors() {
	for err := range p.producer.Errors() {
		p.logger.Warn("event publish failed", zap.Error(err.Err))
	}
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

var _ events.Publisher = (*Producer)(nil)
