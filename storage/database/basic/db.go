package basic

import (
	"context"
	"database/sql"
	"strings"
	"time"

	core "childsvc/storage/database"
	"childsvc/storage/database/dialect"
)

// DB 基于 database/sql 的最小实现，满足 core.IDatabase 抽象
type DB struct {
	db      *sql.DB
	driver  string
	dialect dialect.Dialect
}

// New 根据 core.DBConfig 创建基础数据库实例
//
// 调用方必须确保所配置的 Driver 已通过空导入注册
// （例如 `_ "modernc.org/sqlite"` 或 `_ "github.com/jackc/pgx/v5/stdlib"`）。
func New(config core.DBConfig) (*DB, error) {
	driver := DriverName(config.Driver)

	db, err := sql.Open(driver, config.Database)
	if err != nil {
		return nil, err
	}

	// 连接池配置（可选）
	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(config.ConnMaxLifetime) * time.Second)
	}
	if config.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(config.ConnMaxIdleTime) * time.Second)
	}

	// 基础可用性检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return Wrap(db, driver), nil
}

// DriverName 将配置中的方言别名规范为已注册的 database/sql 驱动名
func DriverName(name string) string {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return "sqlite"
	case "postgres", "postgresql", "pgx":
		return "pgx"
	default:
		return name
	}
}

// Wrap 包装已打开的 *sql.DB（测试中用于接入 sqlmock）
func Wrap(db *sql.DB, driver string) *DB {
	return &DB{db: db, driver: driver, dialect: dialect.New(driver)}
}

func (d *DB) Query(ctx context.Context, query string, args ...any) (core.IRows, error) {
	rows, err := d.db.QueryContext(ctx, d.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return &Rows{rows: rows}, nil
}

func (d *DB) QueryRow(ctx context.Context, query string, args ...any) core.IRow {
	return &Row{row: d.db.QueryRowContext(ctx, d.dialect.Rebind(query), args...)}
}

func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return d.db.ExecContext(ctx, d.dialect.Rebind(query), args...)
}

func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }
func (d *DB) Close() error                   { return d.db.Close() }
func (d *DB) Raw() any                       { return d.db }

// GetDialectName 实现 core.IDialectNameProvider 接口，返回底层 driver 名
func (d *DB) GetDialectName() string {
	return d.driver
}

var _ core.IDatabase = (*DB)(nil)
