package dialect

import (
	"strconv"
	"strings"

	core "childsvc/storage/database"
)

// Name 标准化的数据库方言名称
type Name string

const (
	NameSQLite   Name = "sqlite"
	NamePostgres Name = "postgres"
	NameUnknown  Name = ""
)

// Dialect 表示当前数据库的方言能力
//
// 只抽象存储实际用到的能力：占位符改写、标识符引用、唯一键冲突识别。
type Dialect struct {
	name Name
}

// New 根据 driver/方言名构造（大小写不敏感）；pgx 驱动按 postgres 处理
func New(name string) Dialect {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3":
		return Dialect{name: NameSQLite}
	case "postgres", "postgresql", "pgx":
		return Dialect{name: NamePostgres}
	default:
		return Dialect{name: NameUnknown}
	}
}

// FromDatabase 从 IDatabase 实例推断方言
//
// 需要 IDatabase 可选实现 IDialectNameProvider 接口；否则返回 Unknown。
func FromDatabase(db core.IDatabase) Dialect {
	if db == nil {
		return Dialect{name: NameUnknown}
	}
	if p, ok := db.(core.IDialectNameProvider); ok {
		return New(p.GetDialectName())
	}
	return Dialect{name: NameUnknown}
}

// Name 返回标准化方言名
func (d Dialect) Name() Name {
	return d.name
}

// QuoteIdentifier 根据方言对标识符加双引号，支持 schema.table 形式。
// Unknown 方言返回原始字符串。
func (d Dialect) QuoteIdentifier(name string) string {
	if name == "" || d.name == NameUnknown {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = `"` + p + `"`
	}
	return strings.Join(parts, ".")
}

// Rebind 将通用占位符 ? 转换为方言特定形式。
//
// 仅对 Postgres 替换为 $1、$2...；不解析字符串字面量，调用方应避免在字面量中使用 ?。
func (d Dialect) Rebind(query string) string {
	if query == "" || d.name != NamePostgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 4)
	argIndex := 1
	for i := 0; i < len(query); i++ {
		ch := query[i]
		if ch == '?' {
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(argIndex))
			argIndex++
		} else {
			sb.WriteByte(ch)
		}
	}
	return sb.String()
}

// IsUniqueViolation 通过错误消息关键字判断唯一键/主键冲突
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch d.name {
	case NameSQLite:
		return strings.Contains(msg, "unique constraint failed")
	default:
		return strings.Contains(msg, "duplicate key") ||
			strings.Contains(msg, "unique constraint")
	}
}
