package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
)

// RedisStore is an alternative, network-backed Store implementation,
// demonstrating the "alternative stores are pluggable" half of §4.C with a
// real KV store rather than a second in-process one. Grounded on
// chenquan-lighthouse's go-redis/redis/v8 usage.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore wraps an existing *redis.Client. prefix namespaces keys so
// one Redis instance can back several client processes.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "mqttclient"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) redisKey(key Key) string {
	return fmt.Sprintf("%s:{%s}:%s:%d", s.prefix, key.ClientID, key.Dir, key.PacketID)
}

// Put writes data and waits for Redis's acknowledgement, which is as
// durable as a SET gets without also paying for AOF fsync on every call;
// callers that need stronger durability point RedisStore at an
// AOF-fsync-always instance instead of changing this code.
func (s *RedisStore) Put(key Key, data []byte) error {
	ctx := context.Background()
	return s.rdb.Set(ctx, s.redisKey(key), data, 0).Err()
}

func (s *RedisStore) Get(key Key) ([]byte, error) {
	ctx := context.Background()
	data, err := s.rdb.Get(ctx, s.redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Remove(key Key) error {
	ctx := context.Background()
	return s.rdb.Del(ctx, s.redisKey(key)).Err()
}

func (s *RedisStore) Keys(clientID string) ([]Key, error) {
	ctx := context.Background()
	pattern := fmt.Sprintf("%s:{%s}:*", s.prefix, clientID)
	raw, err := s.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return nil, err
	}
	var keys []Key
	for _, k := range raw {
		parts := strings.Split(k, ":")
		if len(parts) < 4 {
			continue
		}
		id, err := strconv.ParseUint(parts[len(parts)-1], 10, 16)
		if err != nil {
			continue
		}
		keys = append(keys, Key{ClientID: clientID, Dir: Direction(parts[len(parts)-2]), PacketID: uint16(id)})
	}
	return keys, nil
}
