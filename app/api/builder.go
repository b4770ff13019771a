// Package api 将实体门面映射为 REST 资源路由
package api

import (
	"context"
	"fmt"
	"net/http"

	"childsvc/domain"
	"childsvc/domain/crud"
	"childsvc/errors"
	httpx "childsvc/http"
	"childsvc/http/header"
	"childsvc/logging"
	"childsvc/messaging"
)

// ResourceBuilder 资源路由构建器
//
//	POST   {base}       创建，201 + Location
//	PUT    {base}       更新，200
//	GET    {base}       列表，200
//	GET    {base}/:id   查询，200 或 404（空响应体）
//	DELETE {base}/:id   删除，200
type ResourceBuilder[T domain.IEntity[ID], ID comparable] struct {
	facade      crud.IFacade[T, ID]
	newEntity   func() T
	config      *RouteConfig[ID]
	middlewares []httpx.Middleware
	logger      logging.Logger
}

// NewResourceBuilder 创建资源路由构建器；newEntity 返回用于绑定请求体的空实体
func NewResourceBuilder[T domain.IEntity[ID], ID comparable](
	facade crud.IFacade[T, ID],
	newEntity func() T,
	basePath string,
) *ResourceBuilder[T, ID] {
	return &ResourceBuilder[T, ID]{
		facade:    facade,
		newEntity: newEntity,
		config:    DefaultRouteConfig[ID](basePath),
	}
}

// Route 调整路由配置
func (rb *ResourceBuilder[T, ID]) Route(configure func(*RouteConfig[ID])) *ResourceBuilder[T, ID] {
	if configure != nil {
		configure(rb.config)
	}
	return rb
}

// Use 添加仅作用于本资源的中间件
func (rb *ResourceBuilder[T, ID]) Use(middlewares ...httpx.Middleware) *ResourceBuilder[T, ID] {
	rb.middlewares = append(rb.middlewares, middlewares...)
	return rb
}

// Register 将五条路由注册到路由组
func (rb *ResourceBuilder[T, ID]) Register(group httpx.IRouteGroup) error {
	if rb.facade == nil {
		return fmt.Errorf("facade cannot be nil")
	}
	if rb.newEntity == nil {
		return fmt.Errorf("entity constructor cannot be nil")
	}
	if rb.config.BasePath == "" {
		return fmt.Errorf("base path cannot be empty")
	}
	if rb.config.ParseID == nil {
		rb.config.ParseID = ParsePathID[ID]
	}
	if rb.config.FormatID == nil {
		rb.config.FormatID = func(id ID) string { return fmt.Sprint(id) }
	}
	logger := rb.config.Logger
	if logger == nil {
		logger = logging.GetLogger()
	}
	rb.logger = logger.WithFields(logging.String("component", "api"), logging.String("entity", rb.facade.Name()))

	target := group
	if len(rb.middlewares) > 0 {
		target = group.Group("").Use(rb.middlewares...)
	}

	base := rb.config.BasePath
	target.POST(base, rb.handleCreate)
	target.PUT(base, rb.handleUpdate)
	target.GET(base, rb.handleList)
	target.GET(base+"/:id", rb.handleGet)
	target.DELETE(base+"/:id", rb.handleDelete)
	return nil
}

func (rb *ResourceBuilder[T, ID]) handleCreate(c httpx.IHttpContext) error {
	ctx := c.GetContext()
	e, err := rb.bind(c)
	if err != nil {
		return err
	}
	rb.logger.Debug(ctx, "REST request to save "+rb.facade.Name(), logging.Any("body", e))
	if !domain.IsTransient[T, ID](e) {
		return errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("a new %s cannot already have an id", rb.facade.Name()))
	}

	created, err := rb.facade.Create(ctx, e)
	if err != nil {
		return err
	}
	id := rb.config.FormatID(created.GetID())
	c.SetHeader(httpx.HeaderLocation, rb.location(id))
	rb.outcome(c, header.EntityCreated(rb.config.AppName, rb.facade.Name(), id), created)
	return c.JSON(http.StatusCreated, created)
}

func (rb *ResourceBuilder[T, ID]) handleUpdate(c httpx.IHttpContext) error {
	ctx := c.GetContext()
	e, err := rb.bind(c)
	if err != nil {
		return err
	}
	rb.logger.Debug(ctx, "REST request to update "+rb.facade.Name(), logging.Any("body", e))
	if domain.IsTransient[T, ID](e) {
		return errors.NewError(errors.ErrCodeInvalidInput, "invalid id")
	}

	updated, err := rb.facade.Edit(ctx, e)
	if err != nil {
		return err
	}
	id := rb.config.FormatID(updated.GetID())
	rb.outcome(c, header.EntityUpdated(rb.config.AppName, rb.facade.Name(), id), updated)
	return c.JSON(http.StatusOK, updated)
}

func (rb *ResourceBuilder[T, ID]) handleList(c httpx.IHttpContext) error {
	ctx := c.GetContext()
	rb.logger.Debug(ctx, "REST request to get all "+rb.facade.Name())

	items, err := rb.facade.FindAll(ctx)
	if err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, items)
}

func (rb *ResourceBuilder[T, ID]) handleGet(c httpx.IHttpContext) error {
	ctx := c.GetContext()
	id, err := rb.config.ParseID(c, "id")
	if err != nil {
		return err
	}
	rb.logger.Debug(ctx, "REST request to get "+rb.facade.Name(), logging.Any("id", id))

	e, found, err := rb.facade.Find(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return c.WriteStatus(http.StatusNotFound)
	}
	return c.JSON(http.StatusOK, e)
}

func (rb *ResourceBuilder[T, ID]) handleDelete(c httpx.IHttpContext) error {
	ctx := c.GetContext()
	id, err := rb.config.ParseID(c, "id")
	if err != nil {
		return err
	}
	rb.logger.Debug(ctx, "REST request to delete "+rb.facade.Name(), logging.Any("id", id))

	deleted, err := rb.facade.RemoveByID(ctx, id)
	if err != nil {
		return err
	}
	if !deleted && rb.config.StrictDelete {
		return errors.NewError(errors.ErrCodeNotFound, fmt.Sprintf("%s not found", rb.facade.Name()))
	}
	rb.outcome(c, header.EntityDeleted(rb.config.AppName, rb.facade.Name(), rb.config.FormatID(id)), nil)
	return c.WriteStatus(http.StatusOK)
}

// bind 解码请求体；解码失败为 INVALID_INPUT
func (rb *ResourceBuilder[T, ID]) bind(c httpx.IHttpContext) (T, error) {
	e := rb.newEntity()
	if err := c.BindJSON(e); err != nil {
		var zero T
		return zero, errors.WrapError(err, errors.ErrCodeInvalidInput, "malformed request body")
	}
	return e, nil
}

func (rb *ResourceBuilder[T, ID]) location(id string) string {
	return rb.config.LocationPrefix + rb.config.BasePath + "/" + id
}

// outcome 写结果提示头，并通知回调与发布者；通知失败只记录日志
func (rb *ResourceBuilder[T, ID]) outcome(c httpx.IHttpContext, alert header.Alert, payload any) {
	alert.Apply(c.SetHeader)

	ctx := c.GetContext()
	if rb.config.OnOutcome != nil {
		rb.config.OnOutcome(ctx, alert)
	}
	if rb.config.Publisher == nil {
		return
	}
	event := messaging.Event{
		Entity:   alert.Entity,
		Outcome:  string(alert.Outcome),
		EntityID: alert.Param,
		Payload:  payload,
	}
	if err := rb.config.Publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		rb.logger.Warn(ctx, "publish outcome failed",
			logging.String("type", event.Type()),
			logging.String("id", event.EntityID),
			logging.Error(err))
	}
}
