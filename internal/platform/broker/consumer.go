package broker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"sociaWs/internal/modules/gateway/application/port"
	"sociaWs/internal/modules/gateway/application/usecase"
)

// RemoteApplier delivers bridge frames from other instances to local sockets.
type RemoteApplier interface {
	ApplyRemote(frame port.BridgeFrame)
}

type consumer struct {
	reader *kafka.Reader
}

func newConsumer(brokers []string, groupID, topic string) *consumer {
	return &consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
	}
}

func (c *consumer) run(ctx context.Context, handler func(kafka.Message) error) {
	defer c.reader.Close()
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("kafka read error", slog.Any("error", err))
			continue
		}
		if err := handler(m); err != nil {
			slog.Warn("kafka handler error", slog.String("topic", m.Topic), slog.Any("error", err))
		}
	}
}

// StartBridgeConsumer subscribes this instance to the cross-instance fan-out
// topic. The group id must be unique per instance: every instance needs the
// full frame stream, not a partition of it.
func StartBridgeConsumer(ctx context.Context, brokers []string, topic, instanceGroupID string, applier RemoteApplier) {
	if len(brokers) == 0 {
		// Single-instance deployment without kafka; local delivery only.
		return
	}
	go newConsumer(brokers, instanceGroupID, topic).run(ctx, func(m kafka.Message) error {
		var frame port.BridgeFrame
		if err := json.Unmarshal(m.Value, &frame); err != nil {
			return err
		}
		applier.ApplyRemote(frame)
		return nil
	})
}

// StartPostEventsConsumer feeds post lifecycle occurrences published by the
// social data service into the social adapter. A shared group id is fine
// here: the bridge re-fans every delivery across instances.
func StartPostEventsConsumer(ctx context.Context, brokers []string, topic, groupID string, social *usecase.SocialUseCase) {
	if len(brokers) == 0 {
		return
	}
	go newConsumer(brokers, groupID, topic).run(ctx, func(m kafka.Message) error {
		var occ usecase.PostOccurrence
		if err := json.Unmarshal(m.Value, &occ); err != nil {
			return err
		}
		slog.Info("post occurrence consumed",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
			slog.String("postId", occ.PostID),
			slog.String("action", occ.Action),
		)
		social.HandlePostOccurrence(occ)
		return nil
	})
}
