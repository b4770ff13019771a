// Package messaging 定义实体写操作结果的对外通知。
package messaging

import (
	"context"
	"time"
)

// Event 一次实体写操作结果（created/updated/deleted）
type Event struct {
	ID        string
	Entity    string
	Outcome   string
	EntityID  string
	Timestamp time.Time
	Payload   any
	Metadata  map[string]string
}

// Type 返回事件类型，形如 child.created
func (e Event) Type() string {
	return e.Entity + "." + e.Outcome
}

// IPublisher 结果通知发布者
type IPublisher interface {
	Publish(ctx context.Context, event Event) error
}
