package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ironmonger/hardware-backend/pkg/config"
	"github.com/ironmonger/hardware-backend/pkg/logger"
)

const defaultDialTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type dialFunc func(ctx context.Context, network, address string) (*kafkago.Conn, error)

// Client publishes outbox events. Messages carry their own topic so one
// writer serves every event type.
type Client struct {
	writer  messageWriter
	brokers []string
	dial    dialFunc
	logg    *logger.Logger
}

// Message is a single record to publish.
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

// New builds a synchronous writer over the configured brokers.
func New(cfg config.KafkaConfig, logg *logger.Logger) (*Client, error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	writer := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           cfg.WriteTimeout,
		Transport:              &kafkago.Transport{ClientID: cfg.ClientID},
	}
	return &Client{
		writer:  writer,
		brokers: brokers,
		dial:    kafkago.DialContext,
		logg:    logg,
	}, nil
}

// Publish writes the message and waits for every in-sync replica to ack.
func (c *Client) Publish(ctx context.Context, msg Message) error {
	if c == nil || c.writer == nil {
		return errors.New("kafka client not initialized")
	}
	if msg.Topic == "" {
		return errors.New("kafka topic is required")
	}
	headers := make([]kafkago.Header, 0, len(msg.Headers))
	for k, v := range msg.Headers {
		headers = append(headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	err := c.writer.WriteMessages(ctx, kafkago.Message{
		Topic:   msg.Topic,
		Key:     []byte(msg.Key),
		Value:   msg.Value,
		Headers: headers,
		Time:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Topic, err)
	}
	return nil
}

// Ping succeeds once any broker accepts a connection.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dial == nil {
		return errors.New("kafka client not initialized")
	}
	var lastErr error
	for _, broker := range c.brokers {
		dialCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
		conn, err := c.dial(dialCtx, "tcp", broker)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}
		_ = conn.Close()
		return nil
	}
	if lastErr == nil {
		lastErr = errors.New("no brokers configured")
	}
	return fmt.Errorf("kafka ping: %w", lastErr)
}

// Close flushes pending writes.
func (c *Client) Close() error {
	if c == nil || c.writer == nil {
		return nil
	}
	return c.writer.Close()
}
