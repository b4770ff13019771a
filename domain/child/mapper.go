package child

import "childsvc/storage/database/dialect"

// Table 关系型存储中的表名
const Table = "child"

// SQLMapper Child 与关系表之间的映射
type SQLMapper struct{}

func (SQLMapper) Table() string         { return Table }
func (SQLMapper) Columns() []string     { return []string{"name"} }
func (SQLMapper) New() *Child           { return &Child{} }
func (SQLMapper) Values(c *Child) []any { return []any{c.Name} }

// Targets 扫描目标，顺序为 id + Columns()
func (SQLMapper) Targets(c *Child) []any {
	return []any{&c.ID, &c.Name}
}

// Schema 返回建表语句
func (SQLMapper) Schema(d dialect.Name) string {
	switch d {
	case dialect.NamePostgres:
		return `CREATE TABLE IF NOT EXISTS child (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL DEFAULT ''
)`
	default:
		return `CREATE TABLE IF NOT EXISTS child (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL DEFAULT ''
)`
	}
}
