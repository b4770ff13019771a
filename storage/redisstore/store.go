// Package redisstore 基于 Redis Hash 的实体存储。
//
// 每种实体使用一个 Hash（字段为标识，值为 JSON）和一个自增序列键：
//
//	{prefix}:{entity}      HASH  id -> json
//	{prefix}:{entity}:seq  STRING 自增序列
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"childsvc/domain"
	"childsvc/domain/crud"
)

// Config Redis 存储配置
type Config struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis addr cannot be empty")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis db must be >= 0")
	}
	return nil
}

// 仅在字段已存在时写入，保证 Update 不会创建新实体
var updateScript = redis.NewScript(`
if redis.call("HEXISTS", KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// Store Redis 实体存储
type Store[T domain.IEntity[int64]] struct {
	client *redis.Client
	newFn  func() T
	hash   string
	seq    string
}

// Connect 建立连接并校验可用性
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// New 创建存储；newFn 用于构造反序列化目标
func New[T domain.IEntity[int64]](client *redis.Client, prefix, entity string, newFn func() T) *Store[T] {
	if prefix == "" {
		prefix = "childsvc"
	}
	hash := prefix + ":" + entity
	return &Store[T]{
		client: client,
		newFn:  newFn,
		hash:   hash,
		seq:    hash + ":seq",
	}
}

// Insert 通过 INCR 分配标识并写入
func (s *Store[T]) Insert(ctx context.Context, e T) (T, error) {
	id, err := s.client.Incr(ctx, s.seq).Result()
	if err != nil {
		return e, domain.NewRepositoryError("insert", err)
	}
	e.SetID(id)

	data, err := json.Marshal(e)
	if err != nil {
		return e, domain.NewRepositoryError("insert", err)
	}
	if err := s.client.HSet(ctx, s.hash, field(id), data).Err(); err != nil {
		return e, domain.NewRepositoryError("insert", err)
	}
	return e, nil
}

// Fetch 按标识读取
func (s *Store[T]) Fetch(ctx context.Context, id int64) (T, bool, error) {
	var zero T
	data, err := s.client.HGet(ctx, s.hash, field(id)).Bytes()
	if err == redis.Nil {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, domain.NewRepositoryError("fetch", err)
	}
	e, err := s.decode(data)
	if err != nil {
		return zero, false, err
	}
	return e, true, nil
}

// FetchAll 按标识升序返回全部实体；任一记录无法解码即整体失败
func (s *Store[T]) FetchAll(ctx context.Context) ([]T, error) {
	values, err := s.client.HGetAll(ctx, s.hash).Result()
	if err != nil {
		return nil, domain.NewRepositoryError("fetch_all", err)
	}

	result := make([]T, 0, len(values))
	for k, v := range values {
		e, err := s.decode([]byte(v))
		if err != nil {
			return nil, domain.NewRepositoryError("fetch_all", fmt.Errorf("field %s: %w", k, err))
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].GetID() < result[j].GetID() })
	return result, nil
}

// Update 整体替换已存在的实体
func (s *Store[T]) Update(ctx context.Context, e T) (T, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return e, domain.NewRepositoryError("update", err)
	}
	id := e.GetID()
	n, err := updateScript.Run(ctx, s.client, []string{s.hash}, field(id), data).Int()
	if err != nil {
		return e, domain.NewRepositoryError("update", err)
	}
	if n == 0 {
		return e, domain.NewNotFoundError(id, "entity %d not found", id)
	}
	return e, nil
}

// Delete 按标识删除，不存在时为空操作
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	if err := s.client.HDel(ctx, s.hash, field(id)).Err(); err != nil {
		return domain.NewRepositoryError("delete", err)
	}
	return nil
}

// Close 关闭客户端
func (s *Store[T]) Close() error {
	return s.client.Close()
}

func (s *Store[T]) decode(data []byte) (T, error) {
	e := s.newFn()
	if err := json.Unmarshal(data, e); err != nil {
		var zero T
		return zero, domain.NewRepositoryError("decode", err)
	}
	return e, nil
}

func field(id int64) string {
	return strconv.FormatInt(id, 10)
}

var (
	_ crud.IStore[domain.IEntity[int64], int64] = (*Store[domain.IEntity[int64]])(nil)
	_ crud.ICloser                              = (*Store[domain.IEntity[int64]])(nil)
)
