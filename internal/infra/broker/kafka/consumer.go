package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	return &Consumer{group: g, handler: handler}, nil
}

func (c *Consumer) Run(ctx context.Context, topics []string) error {
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
}

func (h consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handler.Handle(sess.Context(), message); err != nil {
			// retry/handling delegated to handler
			continue
		}
		sess.MarkMessage(message, "")
	}
	return nil
}

// MessageSentLogger records chat delivery events for audit. It is the only
// in-process subscriber; external notification workers attach to the same
// topic with their own group id.
type MessageSentLogger struct {
	Logger *slog.Logger
}

type messageSentEvent struct {
	EventID        string `json:"eventId"`
	ConversationID int64  `json:"conversationId"`
	MessageID      int64  `json:"messageId"`
	SenderID       int64  `json:"senderId"`
}

func (l MessageSentLogger) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var event messageSentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		if l.Logger != nil {
			l.Logger.Warn("undecodable chat event", "topic", msg.Topic, "offset", msg.Offset)
		}
		return nil
	}
	if l.Logger != nil {
		l.Logger.Info("chat message delivered",
			"event_id", event.EventID,
			"conversation_id", event.ConversationID,
			"message_id", event.MessageID,
			"sender_id", event.SenderID,
		)
	}
	return nil
}

var _ MessageHandler = MessageSentLogger{}
