// Package header 构造创建/更新/删除结果的提示响应头。
//
//	X-{app}-Alert:  A new child is created with identifier 1
//	X-{app}-Params: 1
package header

import (
	"fmt"
	"net/http"
)

// Outcome 写操作结果
type Outcome string

const (
	Created Outcome = "created"
	Updated Outcome = "updated"
	Deleted Outcome = "deleted"
)

// Alert 一条结果提示
type Alert struct {
	App     string
	Entity  string
	Outcome Outcome
	Message string
	Param   string
}

// EntityCreated 创建结果提示
func EntityCreated(app, entity, id string) Alert {
	return newAlert(app, entity, Created, fmt.Sprintf("A new %s is created with identifier %s", entity, id), id)
}

// EntityUpdated 更新结果提示
func EntityUpdated(app, entity, id string) Alert {
	return newAlert(app, entity, Updated, fmt.Sprintf("A %s is updated with identifier %s", entity, id), id)
}

// EntityDeleted 删除结果提示
func EntityDeleted(app, entity, id string) Alert {
	return newAlert(app, entity, Deleted, fmt.Sprintf("A %s is deleted with identifier %s", entity, id), id)
}

func newAlert(app, entity string, outcome Outcome, message, param string) Alert {
	return Alert{App: app, Entity: entity, Outcome: outcome, Message: message, Param: param}
}

// AlertKey 提示头名称
func (a Alert) AlertKey() string { return "X-" + a.App + "-Alert" }

// ParamsKey 参数头名称
func (a Alert) ParamsKey() string { return "X-" + a.App + "-Params" }

// Headers 以 http.Header 形式返回
func (a Alert) Headers() http.Header {
	h := make(http.Header, 2)
	h.Set(a.AlertKey(), a.Message)
	h.Set(a.ParamsKey(), a.Param)
	return h
}

// Apply 通过 setter 写入响应头（兼容 httpx.IResponseWriter.SetHeader）
func (a Alert) Apply(set func(key, value string)) {
	set(a.AlertKey(), a.Message)
	set(a.ParamsKey(), a.Param)
}
