package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "pairing_events"

// RedisPublisher fans events out to every service instance subscribed to the
// channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	origin  string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{
		rdb:     rdb,
		channel: channel,
		origin:  uuid.New().String()[:8],
	}
}

// Origin is the short instance id stamped on every published event.
func (p *RedisPublisher) Origin() string {
	return p.origin
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	e.Origin = p.origin
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Kind, err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Kind, err)
	}
	return nil
}

// Subscriber relays events from the redis channel to a local sink.
type Subscriber struct {
	rdb     *redis.Client
	channel string
	sink    Sink
	logger  *zap.Logger
	ready   chan struct{}
}

func NewSubscriber(rdb *redis.Client, channel string, sink Sink, logger *zap.Logger) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		rdb:     rdb,
		channel: channel,
		sink:    sink,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the subscription is confirmed by redis.
func (s *Subscriber) Ready() <-chan struct{} {
	return s.ready
}

// Run blocks until ctx is cancelled or the subscription fails.
func (s *Subscriber) Run(ctx context.Context) error {
	sub := s.rdb.Subscribe(ctx, s.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	close(s.ready)
	s.logger.Info("subscribed to pairing events", zap.String("channel", s.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			s.handle(msg.Payload)
		}
	}
}

func (s *Subscriber) handle(payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		s.logger.Warn("dropping malformed pairing event", zap.Error(err))
		return
	}
	s.sink.Deliver(e)
}
