package api

import (
	"context"
	"fmt"
	"strconv"

	"childsvc/errors"
	httpx "childsvc/http"
	"childsvc/http/basic"
	"childsvc/http/header"
	"childsvc/logging"
	"childsvc/messaging"
)

// RouteConfig 资源路由配置
type RouteConfig[ID comparable] struct {
	// 集合路径，如 /api/child
	BasePath string

	// 结果提示头中的应用名：X-{AppName}-Alert
	AppName string

	// Location 头前缀（部署在上下文路径之下时使用）
	LocationPrefix string

	// 删除不存在的标识时返回 404（默认 200）
	StrictDelete bool

	// 路径参数解析，默认支持 int64/int/string
	ParseID func(ctx httpx.IHttpContext, name string) (ID, error)

	// 标识格式化，默认 fmt.Sprint
	FormatID func(id ID) string

	// 写操作成功后的回调（指标计数等）
	OnOutcome func(ctx context.Context, alert header.Alert)

	// 结果通知发布者，可为空
	Publisher messaging.IPublisher

	Logger logging.Logger
}

// DefaultRouteConfig 默认路由配置
func DefaultRouteConfig[ID comparable](basePath string) *RouteConfig[ID] {
	return &RouteConfig[ID]{
		BasePath: basePath,
		AppName:  "childsvc",
		ParseID:  ParsePathID[ID],
		FormatID: func(id ID) string { return fmt.Sprint(id) },
	}
}

// ParsePathID 解析路径参数为标识；只校验格式
func ParsePathID[ID comparable](ctx httpx.IHttpContext, name string) (ID, error) {
	var id ID
	switch p := any(&id).(type) {
	case *int64:
		v, err := (&basic.HttpUtils{}).ParseID(ctx, name)
		if err != nil {
			return id, err
		}
		*p = v
	case *int:
		v, err := strconv.Atoi(ctx.GetParam(name))
		if err != nil {
			return id, errors.WrapError(err, errors.ErrCodeInvalidInput, fmt.Sprintf("parameter %s must be a valid integer", name))
		}
		*p = v
	case *string:
		raw := ctx.GetParam(name)
		if raw == "" {
			return id, errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("parameter %s cannot be empty", name))
		}
		*p = raw
	default:
		return id, errors.NewError(errors.ErrCodeInternal, fmt.Sprintf("unsupported id type %T", id))
	}
	return id, nil
}
