package data

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

const streamEvents = "agency.events"

func MustRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	return redis.NewClient(opt)
}

// PublishEvent pushes a lifecycle event onto the stream consumed by the ops
// bot. Best effort: the transactional record of an event is its message
// rows, the stream is a side-channel.
func PublishEvent(ctx context.Context, rdb *redis.Client, payload map[string]interface{}) error {
	if rdb == nil {
		return nil
	}
	_, err := rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamEvents,
		Values: payload,
	}).Result()
	return err
}
