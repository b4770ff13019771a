// Package sqlstore 基于 database.IDatabase 的通用关系型实体存储。
//
// 语句统一使用 ? 占位符，由底层 DB 按方言改写（Postgres 为 $n）。
// 标识由数据库自增列分配，插入使用 RETURNING 回读（SQLite ≥ 3.35 与 Postgres 均支持）。
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"childsvc/domain"
	"childsvc/domain/crud"
	"childsvc/logging"
	"childsvc/storage/database"
	"childsvc/storage/database/dialect"
)

// Mapper 实体与表行之间的映射
type Mapper[T domain.IEntity[int64]] interface {
	// Table 表名
	Table() string
	// Columns 除标识列外的列，顺序与 Values 一致
	Columns() []string
	// New 创建用于扫描的空实体
	New() T
	// Values 写入参数，顺序与 Columns 一致
	Values(e T) []any
	// Targets 扫描目标，顺序为 id + Columns()
	Targets(e T) []any
}

// ISchemaProvider 可选接口：Mapper 提供按方言的建表语句
type ISchemaProvider interface {
	Schema(d dialect.Name) string
}

// Store 关系型实体存储
type Store[T domain.IEntity[int64]] struct {
	db      database.IDatabase
	mapper  Mapper[T]
	dialect dialect.Dialect
	logger  logging.Logger

	table     string
	idColumn  string
	selectAll string
}

// New 创建存储；方言从 db 推断
func New[T domain.IEntity[int64]](db database.IDatabase, mapper Mapper[T]) *Store[T] {
	d := dialect.FromDatabase(db)
	cols := make([]string, 0, len(mapper.Columns())+1)
	cols = append(cols, d.QuoteIdentifier("id"))
	for _, c := range mapper.Columns() {
		cols = append(cols, d.QuoteIdentifier(c))
	}
	table := d.QuoteIdentifier(mapper.Table())
	return &Store[T]{
		db:        db,
		mapper:    mapper,
		dialect:   d,
		logger:    logging.GetLogger().WithFields(logging.String("store", "sql"), logging.String("table", mapper.Table())),
		table:     table,
		idColumn:  d.QuoteIdentifier("id"),
		selectAll: fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), table),
	}
}

// Migrate 执行 Mapper 提供的建表语句（未实现 ISchemaProvider 时为空操作）
func (s *Store[T]) Migrate(ctx context.Context) error {
	p, ok := s.mapper.(ISchemaProvider)
	if !ok {
		return nil
	}
	if _, err := s.db.Exec(ctx, p.Schema(s.dialect.Name())); err != nil {
		return domain.NewRepositoryError("migrate", err)
	}
	s.logger.Info(ctx, "schema ensured", logging.String("dialect", string(s.dialect.Name())))
	return nil
}

// Insert 插入并回填标识
func (s *Store[T]) Insert(ctx context.Context, e T) (T, error) {
	cols := s.mapper.Columns()
	quoted := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = s.dialect.QuoteIdentifier(c)
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		s.table, strings.Join(quoted, ", "), strings.Join(marks, ", "), s.idColumn)

	var id int64
	if err := s.db.QueryRow(ctx, query, s.mapper.Values(e)...).Scan(&id); err != nil {
		if s.dialect.IsUniqueViolation(err) {
			return e, &domain.RepositoryError{
				Code:    domain.ErrEntityAlreadyExists.Code,
				Message: "entity already exists",
				Cause:   err,
			}
		}
		return e, domain.NewRepositoryError("insert", err)
	}
	e.SetID(id)
	return e, nil
}

// Fetch 按标识读取
func (s *Store[T]) Fetch(ctx context.Context, id int64) (T, bool, error) {
	e := s.mapper.New()
	query := s.selectAll + " WHERE " + s.idColumn + " = ?"
	err := s.db.QueryRow(ctx, query, id).Scan(s.mapper.Targets(e)...)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, false, nil
	}
	if err != nil {
		var zero T
		return zero, false, domain.NewRepositoryError("fetch", err)
	}
	return e, true, nil
}

// FetchAll 按标识升序返回全部实体
func (s *Store[T]) FetchAll(ctx context.Context) ([]T, error) {
	rows, err := s.db.Query(ctx, s.selectAll+" ORDER BY "+s.idColumn)
	if err != nil {
		return nil, domain.NewRepositoryError("fetch_all", err)
	}
	defer rows.Close()

	result := make([]T, 0)
	for rows.Next() {
		e := s.mapper.New()
		if err := rows.Scan(s.mapper.Targets(e)...); err != nil {
			return nil, domain.NewRepositoryError("fetch_all", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewRepositoryError("fetch_all", err)
	}
	return result, nil
}

// Update 整体替换；未命中任何行时返回 domain.ErrEntityNotFound
func (s *Store[T]) Update(ctx context.Context, e T) (T, error) {
	cols := s.mapper.Columns()
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = s.dialect.QuoteIdentifier(c) + " = ?"
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", s.table, strings.Join(sets, ", "), s.idColumn)

	args := append(s.mapper.Values(e), e.GetID())
	res, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return e, domain.NewRepositoryError("update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return e, domain.NewRepositoryError("update", err)
	}
	if n == 0 {
		return e, domain.NewNotFoundError(e.GetID(), "%s %d not found", s.mapper.Table(), e.GetID())
	}
	return e, nil
}

// Delete 按标识删除，不存在时为空操作
func (s *Store[T]) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", s.table, s.idColumn)
	if _, err := s.db.Exec(ctx, query, id); err != nil {
		return domain.NewRepositoryError("delete", err)
	}
	return nil
}

// Close 关闭底层连接
func (s *Store[T]) Close() error {
	return s.db.Close()
}

var (
	_ crud.IStore[domain.IEntity[int64], int64] = (*Store[domain.IEntity[int64]])(nil)
	_ crud.ICloser                              = (*Store[domain.IEntity[int64]])(nil)
)
