// Package redis carries cross-component signals over redis pub/sub. The
// only hard requirement here is call revocation: the gate publishes and the
// AI-assistance consumer must see it immediately.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Tate5000/Thera-stack/internal/model"
)

// ChannelCallRevocations carries model.CallRevocation payloads.
const ChannelCallRevocations = "calls:revocations"

type Publisher struct {
	client *redis.Client
}

func NewPublisher(url string) (*Publisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Publisher{client: client}, nil
}

// PublishRevocation pushes a revocation signal onto the revocation channel.
func (p *Publisher) PublishRevocation(ctx context.Context, revocation model.CallRevocation) error {
	payload, err := json.Marshal(revocation)
	if err != nil {
		return fmt.Errorf("failed to marshal revocation: %w", err)
	}
	if err := p.client.Publish(ctx, ChannelCallRevocations, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish revocation: %w", err)
	}
	return nil
}

// SubscribeRevocations returns a channel of revocation signals. The caller
// owns the subscription and must drain it until the context ends.
func (p *Publisher) SubscribeRevocations(ctx context.Context) (<-chan model.CallRevocation, error) {
	sub := p.client.Subscribe(ctx, ChannelCallRevocations)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan model.CallRevocation)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-sub.Channel():
				if !ok {
					return
				}
				var revocation model.CallRevocation
				if err := json.Unmarshal([]byte(msg.Payload), &revocation); err != nil {
					continue
				}
				select {
				case out <- revocation:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (p *Publisher) Close() error {
	return p.client.Close()
}
