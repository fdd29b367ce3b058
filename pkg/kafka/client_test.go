package kafka

import (
	"context"
	"errors"
	"strings"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ironmonger/hardware-backend/pkg/config"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishBuildsMessage(t *testing.T) {
	writer := &recordingWriter{}
	client := &Client{writer: writer}

	err := client.Publish(context.Background(), Message{
		Topic:   "hardware.order_created",
		Key:     "order-1",
		Value:   []byte(`{"ok":true}`),
		Headers: map[string]string{"event_type": "order_created"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(writer.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.msgs))
	}
	msg := writer.msgs[0]
	if msg.Topic != "hardware.order_created" || string(msg.Key) != "order-1" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(msg.Headers) != 1 || msg.Headers[0].Key != "event_type" || string(msg.Headers[0].Value) != "order_created" {
		t.Fatalf("unexpected headers %+v", msg.Headers)
	}

	if err := client.Close(); err != nil || !writer.closed {
		t.Fatalf("expected writer closed, err=%v", err)
	}
}

func TestPublishErrors(t *testing.T) {
	client := &Client{writer: &recordingWriter{err: errors.New("leader not available")}}
	if err := client.Publish(context.Background(), Message{Topic: "t"}); err == nil {
		t.Fatal("expected writer error to surface")
	}
	if err := client.Publish(context.Background(), Message{}); err == nil {
		t.Fatal("expected missing topic error")
	}
	var nilClient *Client
	if err := nilClient.Publish(context.Background(), Message{Topic: "t"}); err == nil {
		t.Fatal("expected uninitialized error")
	}
}

func TestPingTriesEveryBroker(t *testing.T) {
	calls := 0
	client := &Client{
		brokers: []string{"a:9092", "b:9092"},
		dial: func(ctx context.Context, network, address string) (*kafkago.Conn, error) {
			calls++
			return nil, errors.New("refused")
		},
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping failure")
	}
	if calls != 2 {
		t.Fatalf("expected 2 dial attempts, got %d", calls)
	}
}

func TestNewRequiresBrokers(t *testing.T) {
	if _, err := New(config.KafkaConfig{Brokers: " , "}, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
	client, err := New(config.KafkaConfig{Brokers: "localhost:9092", ClientID: "test"}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if len(client.brokers) != 1 {
		t.Fatalf("unexpected brokers %v", client.brokers)
	}
}

func TestEnsureTopicsNeedsAReachableController(t *testing.T) {
	var dialed []string
	client := &Client{
		brokers: []string{"a:9092", "b:9092"},
		dial: func(ctx context.Context, network, address string) (*kafkago.Conn, error) {
			dialed = append(dialed, address)
			return nil, errors.New("refused")
		},
	}

	if err := client.EnsureTopics(context.Background(), TopicSpec{}); err != nil {
		t.Fatalf("no topics should be a no-op, got %v", err)
	}
	if len(dialed) != 0 {
		t.Fatalf("expected no dials for an empty topic list")
	}

	err := client.EnsureTopics(context.Background(), TopicSpec{Partitions: 3}, "hardware.order_created")
	if err == nil || !strings.Contains(err.Error(), "find kafka controller") {
		t.Fatalf("expected controller error, got %v", err)
	}
	if len(dialed) != 2 {
		t.Fatalf("expected every broker to be tried, got %v", dialed)
	}
}
