package server

import (
	"context"
	"fmt"
	"strings"

	"childsvc/config"
	"childsvc/domain/child"
	"childsvc/domain/crud"
	"childsvc/storage/database/basic"
	"childsvc/storage/memory"
	"childsvc/storage/mongostore"
	"childsvc/storage/redisstore"
	"childsvc/storage/sqlstore"
)

// ChildStore child 实体存储
type ChildStore = crud.IStore[*child.Child, int64]

// OpenStore 按驱动创建 child 存储；SQL 驱动会执行建表迁移
func OpenStore(ctx context.Context, cfg config.StoreConfig) (ChildStore, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return memory.NewStore[*child.Child](), nil

	case config.DriverSQLite, config.DriverPostgres:
		dbCfg := cfg.SQL
		dbCfg.Driver = cfg.Driver
		if cfg.Driver == config.DriverSQLite && strings.Contains(dbCfg.Database, ":memory:") {
			// 每个连接都是独立的内存库
			dbCfg.MaxOpenConns = 1
		}
		db, err := basic.New(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
		}
		store := sqlstore.New[*child.Child](db, child.SQLMapper{})
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate %s: %w", child.Table, err)
		}
		return store, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisstore.New(client, cfg.Redis.Prefix, child.EntityName, child.NewEmpty), nil

	case config.DriverMongo:
		mcfg := cfg.Mongo
		if mcfg.Collection == "" {
			mcfg.Collection = child.Table
		}
		store, err := mongostore.New(ctx, mcfg, child.NewEmpty)
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// closeStore 释放持有连接的存储
func closeStore(store ChildStore) error {
	if c, ok := store.(crud.ICloser); ok {
		return c.Close()
	}
	return nil
}
