package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// StreamMaxLen bounds every stream written here (approximate trimming).
const StreamMaxLen = 10000

// StreamMessage is one entry read from a consumer group.
type StreamMessage struct {
	Stream string
	ID     string
	Values map[string]interface{}
}

// PublishToStream appends raw field values to a stream.
func PublishToStream(ctx context.Context, client *redis.Client, stream string, values map[string]interface{}) (string, error) {
	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: StreamMaxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to append to stream %s: %w", stream, err)
	}
	return id, nil
}

// PublishJSONToStream stores data JSON-encoded under "data", next to the
// publish time in unix milliseconds.
func PublishJSONToStream(ctx context.Context, client *redis.Client, stream string, data interface{}) (string, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode stream payload: %w", err)
	}
	return PublishToStream(ctx, client, stream, map[string]interface{}{
		"data":         string(encoded),
		"published_ms": time.Now().UnixMilli(),
	})
}

// ReadFromStream reads new entries for a consumer, blocking up to block.
// A timeout with nothing to read returns an empty slice.
func ReadFromStream(ctx context.Context, client *redis.Client, stream, consumerGroup, consumer string, count int64, block time.Duration) ([]StreamMessage, error) {
	return readGroup(ctx, client, stream, consumerGroup, consumer, ">", count, block)
}

// ReadPendingFromStream returns entries already delivered to consumer but
// not acked yet, oldest first. It never blocks.
func ReadPendingFromStream(ctx context.Context, client *redis.Client, stream, consumerGroup, consumer string, count int64) ([]StreamMessage, error) {
	return readGroup(ctx, client, stream, consumerGroup, consumer, "0", count, -1)
}

func readGroup(ctx context.Context, client *redis.Client, stream, consumerGroup, consumer, id string, count int64, block time.Duration) ([]StreamMessage, error) {
	res, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: consumer,
		Streams:  []string{stream, id},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return []StreamMessage{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]StreamMessage, 0, count)
	for _, s := range res {
		for _, m := range s.Messages {
			out = append(out, StreamMessage{Stream: s.Stream, ID: m.ID, Values: m.Values})
		}
	}
	return out, nil
}

// Ack acknowledges processed entries.
func Ack(ctx context.Context, client *redis.Client, stream, consumerGroup string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	return client.XAck(ctx, stream, consumerGroup, ids...).Err()
}

// CreateConsumerGroup creates the group (and the stream if missing), reading
// from the start of the stream. An existing group is not an error.
func CreateConsumerGroup(ctx context.Context, client *redis.Client, stream string, groupName string) error {
	err := client.XGroupCreateMkStream(ctx, stream, groupName, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s on %s: %w", groupName, stream, err)
	}
	return nil
}

// DecodeJSON unmarshals the "data" field written by PublishJSONToStream.
func DecodeJSON(msg StreamMessage, dest interface{}) error {
	raw, ok := msg.Values["data"].(string)
	if !ok {
		return fmt.Errorf("stream message %s has no data field", msg.ID)
	}
	return json.Unmarshal([]byte(raw), dest)
}
