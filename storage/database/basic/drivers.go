package basic

import (
	// 注册 database/sql 驱动："sqlite"（纯 Go，无需 cgo）与 "pgx"（PostgreSQL）
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)
