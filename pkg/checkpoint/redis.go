/*
Copyright 2024 The RetailPulse Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package checkpoint

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists the committed offset vector in a redis hash keyed by
// partition.
type RedisStore struct {
	client    redis.UniversalClient
	offsetKey string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore returns a Store backed by the given redis client. keyPrefix
// namespaces the engine instance.
func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:    client,
		offsetKey: fmt.Sprintf("%s:offsets", keyPrefix),
	}
}

func (r *RedisStore) Load(ctx context.Context) (map[int32]int64, error) {
	fields, err := r.client.HGetAll(ctx, r.offsetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint %q: %w", r.offsetKey, err)
	}
	offsets := make(map[int32]int64, len(fields))
	for field, value := range fields {
		partition, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("corrupt checkpoint partition field %q: %w", field, err)
		}
		offset, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt checkpoint offset value %q: %w", value, err)
		}
		offsets[int32(partition)] = offset
	}
	return offsets, nil
}

func (r *RedisStore) Save(ctx context.Context, offsets map[int32]int64) error {
	if len(offsets) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(offsets))
	for partition, offset := range offsets {
		fields[strconv.FormatInt(int64(partition), 10)] = strconv.FormatInt(offset, 10)
	}
	if err := r.client.HSet(ctx, r.offsetKey, fields).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint %q: %w", r.offsetKey, err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
