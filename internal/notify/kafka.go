package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/xenking/orderflow/internal/domain/order"
)

// MessageWriter writes Kafka messages. *kafka.Writer implements it.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher queues order e-mails on a Kafka topic for the notify worker.
type KafkaPublisher struct {
	w MessageWriter
}

// NewKafkaPublisher creates a publisher writing to cfg.Topic.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return NewKafkaPublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	})
}

// NewKafkaPublisherWithWriter creates a publisher writing through w.
func NewKafkaPublisherWithWriter(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

// Notify enqueues the e-mail for an order event, keyed by order number.
func (p *KafkaPublisher) Notify(ctx context.Context, e order.Event, n order.Notification) error {
	value, err := json.Marshal(Compose(e, n))
	if err != nil {
		return errors.Wrap(err, "marshal email message")
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.OrderNumber),
		Value: value,
	})
	if err != nil {
		return errors.Wrapf(err, "write %s message", e)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Sender delivers e-mail messages. *Mailer implements it.
type Sender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// MessageReader reads Kafka messages. *kafka.Reader implements it.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaConsumer reads queued e-mails and hands them to a Sender.
type KafkaConsumer struct {
	r      MessageReader
	sender Sender
	lg     *zap.Logger
}

// NewKafkaConsumer creates a consumer in cfg.GroupID reading cfg.Topic.
func NewKafkaConsumer(cfg KafkaConfig, sender Sender, lg *zap.Logger) *KafkaConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           cfg.Brokers,
		GroupID:           cfg.GroupID,
		Topic:             cfg.Topic,
		MinBytes:          1,
		MaxBytes:          10e6,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	})
	return NewKafkaConsumerWithReader(r, sender, lg)
}

// NewKafkaConsumerWithReader creates a consumer reading through r.
func NewKafkaConsumerWithReader(r MessageReader, sender Sender, lg *zap.Logger) *KafkaConsumer {
	return &KafkaConsumer{r: r, sender: sender, lg: lg}
}

// Run consumes until ctx is done. Malformed messages and delivery failures
// are logged and skipped.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	c.lg.Info("Kafka consumer started")
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "read message")
		}
		c.handle(ctx, m)
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, m kafka.Message) {
	var msg EmailMessage
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		c.lg.Error("Unmarshal email message", zap.ByteString("value", m.Value), zap.Error(err))
		return
	}
	if msg.To == "" || msg.Template == "" {
		c.lg.Warn("Invalid email message", zap.String("key", string(m.Key)))
		return
	}
	if err := c.sender.Send(ctx, msg); err != nil {
		c.lg.Error("Send email",
			zap.String("to", msg.To),
			zap.String("template", msg.Template),
			zap.Error(err),
		)
		return
	}
	c.lg.Info("Email sent", zap.String("to", msg.To), zap.String("template", msg.Template))
}

// Close closes the reader.
func (c *KafkaConsumer) Close() error {
	return c.r.Close()
}
