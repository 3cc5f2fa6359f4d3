package ws

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

// Publisher доставляет готовый кадр queueUpdate всем подписчикам.
type Publisher interface {
	Publish(ctx context.Context, frame []byte) error
}

// LocalPublisher рассылает кадр клиентам этого процесса.
type LocalPublisher struct {
	Hub *Hub
}

func (p LocalPublisher) Publish(_ context.Context, frame []byte) error {
	p.Hub.Broadcast(frame)
	return nil
}

// DefaultRedisChannel канал Redis для кадров queueUpdate.
const DefaultRedisChannel = "queue_updates"

// RedisPublisher публикует кадры в Redis, чтобы их получили клиенты всех экземпляров сервера.
// Доставку в локальный Hub выполняет StartRelay.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, frame []byte) error {
	return p.client.Publish(ctx, p.channel, frame).Err()
}

// StartRelay подписывается на канал и до отмены ctx передаёт полученные кадры в hub.
// Возвращается после подтверждения подписки.
func (p *RedisPublisher) StartRelay(ctx context.Context, hub *Hub) error {
	sub := p.client.Subscribe(ctx, p.channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("подписка на %s: %w", p.channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					log.Printf("Подписка на %s закрыта", p.channel)
					return
				}
				hub.Broadcast([]byte(msg.Payload))
			}
		}
	}()
	return nil
}
