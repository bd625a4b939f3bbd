// Package redisinfra relays live pushes between service instances over Redis pub/sub.
package redisinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gallery-live/internal/domain"
	"github.com/gallery-live/internal/pkg/logger"
)

// Connect parses url and pings the server, retrying a few times while it starts.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for range 3 {
		client := redis.NewClient(opt)
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(err, ctx.Err())
		case <-time.After(time.Second):
		}
	}
	return nil, fmt.Errorf("redis not ready: %w", err)
}

// LocalPusher delivers to connections held by this instance.
type LocalPusher interface {
	PushToRoom(room string, ev domain.Event) int
}

// envelope is the message published on the channel.
type envelope struct {
	Origin string    `json:"origin"`
	Room   string    `json:"room"`
	Event  wireEvent `json:"event"`
}

type wireEvent struct {
	Name   string          `json:"type"`
	Data   json.RawMessage `json:"data,omitempty"`
	SentAt time.Time       `json:"sent_at"`
}

// Relay fans a push out to every instance: it delivers locally right away and
// publishes the event so peers deliver to the connections they hold.
type Relay struct {
	client   redis.UniversalClient
	channel  string
	origin   string
	local    LocalPusher
	logger   *slog.Logger
	outbound chan []byte
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithRelayLogger sets the logger for the Relay.
func WithRelayLogger(l *slog.Logger) RelayOption {
	return func(r *Relay) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithOutboundBuffer sets how many publishes may be queued before new ones are dropped.
func WithOutboundBuffer(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.outbound = make(chan []byte, n)
		}
	}
}

// NewRelay creates a relay publishing on channel. origin identifies this instance
// so it can ignore its own messages.
func NewRelay(client redis.UniversalClient, channel, origin string, local LocalPusher, opts ...RelayOption) *Relay {
	r := &Relay{
		client:   client,
		channel:  channel,
		origin:   origin,
		local:    local,
		logger:   slog.Default(),
		outbound: make(chan []byte, 1024),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PushToRoom delivers ev to local members of room and queues it for peers.
// It never blocks: when the publish queue is full the remote copy is dropped.
// The return value counts local deliveries only.
func (r *Relay) PushToRoom(room string, ev domain.Event) int {
	delivered := r.local.PushToRoom(room, ev)

	payload, err := encode(r.origin, room, ev)
	if err != nil {
		r.logger.Error("relay encode failed", logger.Room(room), logger.EventType(ev.Name), logger.Error(err))
		return delivered
	}
	select {
	case r.outbound <- payload:
	default:
		r.logger.Warn("relay queue full, remote push dropped", logger.Room(room), logger.EventType(ev.Name))
	}
	return delivered
}

// Run publishes queued pushes and delivers peers' pushes locally until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("relay subscribed", slog.String("channel", r.channel), slog.String("origin", r.origin))

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case payload := <-r.outbound:
			if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
				r.logger.Warn("relay publish failed", logger.Error(err))
			}
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("relay subscription closed")
			}
			r.deliver([]byte(msg.Payload))
		}
	}
}

// Ping checks the Redis connection.
func (r *Relay) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Relay) deliver(payload []byte) int {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		r.logger.Warn("relay message malformed", logger.Error(err))
		return 0
	}
	if env.Origin == r.origin || env.Room == "" {
		return 0
	}
	ev := domain.Event{Name: env.Event.Name, SentAt: env.Event.SentAt}
	if len(env.Event.Data) > 0 {
		ev.Data = env.Event.Data
	}
	return r.local.PushToRoom(env.Room, ev)
}

func encode(origin, room string, ev domain.Event) ([]byte, error) {
	var data json.RawMessage
	if ev.Data != nil {
		b, err := json.Marshal(ev.Data)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(envelope{
		Origin: origin,
		Room:   room,
		Event:  wireEvent{Name: ev.Name, Data: data, SentAt: ev.SentAt},
	})
}
