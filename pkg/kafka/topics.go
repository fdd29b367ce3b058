package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	kafkago "github.com/segmentio/kafka-go"
)

// TopicSpec sizes topics created by EnsureTopics.
type TopicSpec struct {
	Partitions        int
	ReplicationFactor int
}

// EnsureTopics creates any of topics that do not exist yet. Topic creation
// must go through the cluster controller, so the first reachable broker is
// asked where it is.
func (c *Client) EnsureTopics(ctx context.Context, spec TopicSpec, topics ...string) error {
	if c == nil || c.dial == nil {
		return errors.New("kafka client not initialized")
	}
	if len(topics) == 0 {
		return nil
	}
	if spec.Partitions <= 0 {
		spec.Partitions = 1
	}
	if spec.ReplicationFactor <= 0 {
		spec.ReplicationFactor = 1
	}

	conn, err := c.controller(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	existing := map[string]bool{}
	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("list partitions: %w", err)
	}
	for _, p := range partitions {
		existing[p.Topic] = true
	}

	var missing []kafkago.TopicConfig
	for _, topic := range topics {
		if existing[topic] {
			continue
		}
		missing = append(missing, kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     spec.Partitions,
			ReplicationFactor: spec.ReplicationFactor,
		})
	}
	if len(missing) == 0 {
		return nil
	}
	if err := conn.CreateTopics(missing...); err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "created_topics", len(missing)), "kafka topics created")
	}
	return nil
}

func (c *Client) controller(ctx context.Context) (*kafkago.Conn, error) {
	var lastErr error
	for _, broker := range c.brokers {
		conn, err := c.dial(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		ctrl, err := conn.Controller()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		addr := net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port))
		ctrlConn, err := c.dial(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		return ctrlConn, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no brokers configured")
	}
	return nil, fmt.Errorf("find kafka controller: %w", lastErr)
}
