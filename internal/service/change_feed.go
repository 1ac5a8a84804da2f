package service

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/pkg/logger"
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ChangePublisher 发布行级变更通知
type ChangePublisher interface {
	Publish(ctx context.Context, event model.ChangeEvent) error
}

// ChangeFeed 基于 Redis Pub/Sub 的变更通知通道
type ChangeFeed struct {
	Redis   *redis.Client
	Channel string
}

func NewChangeFeed(rdb *redis.Client, channel string) *ChangeFeed {
	return &ChangeFeed{Redis: rdb, Channel: channel}
}

func (f *ChangeFeed) Publish(ctx context.Context, event model.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return f.Redis.Publish(ctx, f.Channel, payload).Err()
}

// Subscribe 订阅变更通道；ctx 结束后关闭返回的 channel
func (f *ChangeFeed) Subscribe(ctx context.Context) (<-chan model.ChangeEvent, error) {
	pubsub := f.Redis.Subscribe(ctx, f.Channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	out := make(chan model.ChangeEvent, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				event, err := decodeChangeEvent(msg.Payload)
				if err != nil {
					logger.Log.Warn("Dropping malformed change event", zap.Error(err), zap.String("payload", msg.Payload))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func decodeChangeEvent(payload string) (model.ChangeEvent, error) {
	var event model.ChangeEvent
	err := json.Unmarshal([]byte(payload), &event)
	return event, err
}
