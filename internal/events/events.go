// Package events publishes discovery notifications on redis and guards runs
// with a redis-held lock. Both degrade to no-ops when redis is not configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Channels.
const (
	ChannelRunFinished = "EVENT_DISCOVERY_RUN"
	ChannelJobUpdated  = "EVENT_JOB_UPDATED"
)

// Envelope is the message body on every channel.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher publishes JSON envelopes on one channel.
type Publisher struct {
	rdb     *redis.Client
	channel string
}

// NewPublisher returns a Publisher for channel.
func NewPublisher(rdb *redis.Client, channel string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel}
}

// Publish sends v wrapped in an Envelope.
func (p *Publisher) Publish(ctx context.Context, v any) error {
	msg, err := Encode(p.channel, v)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, msg).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}

// Encode marshals the envelope published on channel.
func Encode(channel string, v any) ([]byte, error) {
	msg, err := json.Marshal(Envelope{Type: channel, Payload: v})
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", channel, err)
	}
	return msg, nil
}

// Noop discards everything.
type Noop struct{}

func (Noop) Publish(context.Context, any) error { return nil }
