package trigger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ancsystem/anc-notifier/internal/database"
	"github.com/ancsystem/anc-notifier/internal/logger"
	"github.com/ancsystem/anc-notifier/internal/model"
)

// RedisMessage is the payload published on the appointment channel
type RedisMessage struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ParseRedisMessage decodes a channel payload into an Event
func ParseRedisMessage(payload string) (Event, error) {
	var msg RedisMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return Event{}, fmt.Errorf("invalid appointment message: %w", err)
	}
	if msg.ID == "" {
		return Event{}, fmt.Errorf("appointment message without id: %w", ErrUnreadable)
	}
	return Event{DocID: msg.ID, Document: msg.Data}, nil
}

// PublishAppointment announces a created document on channel
func PublishAppointment(ctx context.Context, rdb *database.Redis, channel, id string, appt *model.Appointment) error {
	data, err := json.Marshal(appt)
	if err != nil {
		return fmt.Errorf("failed to encode appointment: %w", err)
	}
	payload, err := json.Marshal(RedisMessage{ID: id, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return rdb.Publish(ctx, channel, payload)
}

// RedisSource receives appointment messages over Redis pub/sub
type RedisSource struct {
	rdb     *database.Redis
	channel string
	log     *logger.Logger
}

// NewRedisSource creates a source subscribed to channel
func NewRedisSource(rdb *database.Redis, channel string, log *logger.Logger) *RedisSource {
	return &RedisSource{
		rdb:     rdb,
		channel: channel,
		log:     log.WithComponent("trigger_redis"),
	}
}

// Name identifies the source in logs
func (s *RedisSource) Name() string {
	return "redis"
}

// Run subscribes until ctx is cancelled. Malformed messages are dropped.
func (s *RedisSource) Run(ctx context.Context, dispatch func(Event)) error {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.channel, err)
	}
	s.log.Info().Str("channel", s.channel).Msg("listening for new appointments")

	return s.consume(ctx, pubsub.Channel(), dispatch)
}

// consume dispatches messages from ch until ctx is cancelled or ch closes
func (s *RedisSource) consume(ctx context.Context, ch <-chan *redis.Message, dispatch func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ev, err := ParseRedisMessage(msg.Payload)
			if err != nil {
				s.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping appointment message")
				continue
			}
			dispatch(ev)
		}
	}
}
