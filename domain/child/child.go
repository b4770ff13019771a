// Package child 定义 Child 实体及其各存储后端的映射。
package child

import "childsvc/domain"

// EntityName 实体名称，用于日志、响应头与通知主题
const EntityName = "child"

// Child 子实体：标识由存储分配，名称为任意文本（无校验）
type Child struct {
	ID   int64  `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// New 创建尚未持久化的实体
func New(name string) *Child {
	return &Child{Name: name}
}

// NewEmpty 空实体，用作解码目标
func NewEmpty() *Child { return &Child{} }

func (c *Child) GetID() int64   { return c.ID }
func (c *Child) SetID(id int64) { c.ID = id }

// Clone 返回副本
func (c *Child) Clone() *Child {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

var _ domain.IEntity[int64] = (*Child)(nil)
