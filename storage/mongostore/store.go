// Package mongostore 基于 MongoDB 的实体存储。
//
// 实体以 int64 标识作为 _id 存储；标识由 counters 集合中的自增文档分配。
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"childsvc/domain"
	"childsvc/domain/crud"
)

// Config MongoDB 存储配置
type Config struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	Collection  string `mapstructure:"collection"`
	Timeout     int    `mapstructure:"timeout"` // 秒
	MaxPoolSize int    `mapstructure:"max_pool_size"`
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Database:    "childsvc",
		Timeout:     10,
		MaxPoolSize: 100,
	}
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.URI == "" {
		return fmt.Errorf("URI cannot be empty")
	}
	if c.Database == "" {
		return fmt.Errorf("database cannot be empty")
	}
	if c.Collection == "" {
		return fmt.Errorf("collection cannot be empty")
	}
	if c.MaxPoolSize <= 0 {
		return fmt.Errorf("MaxPoolSize must be greater than 0")
	}
	return nil
}

const countersCollection = "counters"

type counter struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}

// Store MongoDB 实体存储
type Store[T domain.IEntity[int64]] struct {
	client     *mongo.Client
	collection *mongo.Collection
	counters   *mongo.Collection
	newFn      func() T
}

// New 连接 MongoDB 并创建存储
func New[T domain.IEntity[int64]](ctx context.Context, cfg Config, newFn func() T) (*Store[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongodb config: %w", err)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(uint64(cfg.MaxPoolSize)).
		SetTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	return &Store[T]{
		client:     client,
		collection: db.Collection(cfg.Collection),
		counters:   db.Collection(countersCollection),
		newFn:      newFn,
	}, nil
}

func (s *Store[T]) nextID(ctx context.Context) (int64, error) {
	var c counter
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": s.collection.Name()},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, err
	}
	return c.Seq, nil
}

// Insert 分配标识并插入
func (s *Store[T]) Insert(ctx context.Context, e T) (T, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return e, domain.NewRepositoryError("insert", err)
	}
	e.SetID(id)
	if _, err := s.collection.InsertOne(ctx, e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return e, &domain.RepositoryError{
				Code:    domain.ErrEntityAlreadyExists.Code,
				Message: "entity already exists",
				Cause:   err,
			}
		}
		return e, domain.NewRepositoryError("insert", err)
	}
	return e, nil
}

// Fetch 按标识读取
func (s *Store[T]) Fetch(ctx context.Context, id int64) (T, bool, error) {
	var zero T
	e := s.newFn()
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, domain.NewRepositoryError("fetch", err)
	}
	return e, true, nil
}

// FetchAll 按标识升序返回全部实体
func (s *Store[T]) FetchAll(ctx context.Context) ([]T, error) {
	cursor, err := s.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, domain.NewRepositoryError("fetch_all", err)
	}
	defer cursor.Close(ctx)

	result := make([]T, 0)
	for cursor.Next(ctx) {
		e := s.newFn()
		if err := cursor.Decode(e); err != nil {
			return nil, domain.NewRepositoryError("fetch_all", err)
		}
		result = append(result, e)
	}
	if err := cursor.Err(); err != nil {
		return nil, domain.NewRepositoryError("fetch_all", err)
	}
	return result, nil
}

// Update 整体替换；未匹配时返回 domain.ErrEntityNotFound
func (s *Store[T]) Update(ctx context.Context, e T) (T, error) {
	id := e.GetID()
	res, err := s.collection.ReplaceOne(ctx, bson.M{"_id": id}, e)
	if err != nil {
		return e, domain.NewRepositoryError("update", err)
	}
	if res.MatchedCount == 0 {
		return e, domain.NewNotFoundError(id, "entity %d not found", id)
	}
	return e, nil
}

// Delete 按标识删除，不存在时为空操作
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return domain.NewRepositoryError("delete", err)
	}
	return nil
}

// Close 断开连接
func (s *Store[T]) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

var (
	_ crud.IStore[domain.IEntity[int64], int64] = (*Store[domain.IEntity[int64]])(nil)
	_ crud.ICloser                              = (*Store[domain.IEntity[int64]])(nil)
)
