package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"sociaWs/internal/modules/gateway/application/port"
)

// BridgePublisher mirrors local emissions onto the cross-instance bridge
// topic so sockets held by other gateway instances receive the same event.
// Frames are keyed by target to keep per-target order within a partition.
type BridgePublisher struct {
	writer *kafka.Writer
}

func NewBridgePublisher(brokers []string, topic string) *BridgePublisher {
	return &BridgePublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (p *BridgePublisher) Publish(ctx context.Context, frame port.BridgeFrame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal bridge frame: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(frame.Target),
		Value: data,
	}); err != nil {
		return fmt.Errorf("write bridge frame: %w", err)
	}
	return nil
}

func (p *BridgePublisher) Close() error {
	return p.writer.Close()
}
