// Package crud 提供通用实体门面（Facade）及其依赖的存储契约。
//
// 门面与具体实体类型一一绑定，不持有任何实体状态，所有读写都委托给 IStore；
// HTTP 语义由 app/api 负责映射，本包不感知传输层。
package crud

import (
	"context"

	"childsvc/domain"
)

// IStore 实体存储契约
//
// 实现方负责标识分配、唯一性与并发隔离；门面只做透传。
type IStore[T domain.IEntity[ID], ID comparable] interface {
	// Insert 插入实体并分配标识，返回回填了标识的实体
	Insert(ctx context.Context, e T) (T, error)

	// Fetch 按标识读取；不存在时返回 found=false 且 err=nil
	Fetch(ctx context.Context, id ID) (e T, found bool, err error)

	// FetchAll 返回全部实体，顺序由存储决定
	FetchAll(ctx context.Context) ([]T, error)

	// Update 以实体自身标识整体替换；标识不存在时返回 domain.ErrEntityNotFound
	Update(ctx context.Context, e T) (T, error)

	// Delete 按标识删除；不存在时为空操作
	Delete(ctx context.Context, id ID) error
}

// ICloser 可选接口：持有连接的存储在进程退出时释放资源
type ICloser interface {
	Close() error
}
