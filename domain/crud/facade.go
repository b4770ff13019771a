package crud

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"childsvc/domain"
	"childsvc/logging"
)

const tracerName = "childsvc/domain/crud"

// IFacade 通用实体门面接口
type IFacade[T domain.IEntity[ID], ID comparable] interface {
	Create(ctx context.Context, e T) (T, error)
	Find(ctx context.Context, id ID) (T, bool, error)
	FindAll(ctx context.Context) ([]T, error)
	Edit(ctx context.Context, e T) (T, error)
	Remove(ctx context.Context, e T, found bool) error
	RemoveByID(ctx context.Context, id ID) (bool, error)

	// Name 返回绑定的实体名称（用于日志、响应头与通知）
	Name() string
}

// Option 门面构造选项
type Option func(*options)

type options struct {
	logger logging.Logger
	tracer trace.Tracer
}

// WithLogger 设置门面日志
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracerProvider 使用指定的 TracerProvider（默认取 otel 全局）
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// Facade 基于 IStore 的默认门面实现
type Facade[T domain.IEntity[ID], ID comparable] struct {
	name   string
	store  IStore[T, ID]
	logger logging.Logger
	tracer trace.Tracer
}

// NewFacade 创建绑定到单一实体类型与存储句柄的门面
func NewFacade[T domain.IEntity[ID], ID comparable](name string, store IStore[T, ID], opts ...Option) *Facade[T, ID] {
	o := &options{
		logger: logging.GetLogger(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return &Facade[T, ID]{
		name:   name,
		store:  store,
		logger: o.logger.WithFields(logging.String("entity", name)),
		tracer: o.tracer,
	}
}

func (f *Facade[T, ID]) Name() string { return f.name }

// Create 插入实体，由存储分配标识。
// 已带标识的实体同样原样交给存储，拒绝与否由调用方决定。
func (f *Facade[T, ID]) Create(ctx context.Context, e T) (T, error) {
	ctx, span := f.start(ctx, "create")
	defer span.End()

	created, err := f.store.Insert(ctx, e)
	if err != nil {
		return created, f.fail(span, err)
	}
	span.SetAttributes(attribute.String("entity.id", fmt.Sprint(created.GetID())))
	return created, nil
}

// Find 按标识查找，未命中返回 found=false
func (f *Facade[T, ID]) Find(ctx context.Context, id ID) (T, bool, error) {
	ctx, span := f.start(ctx, "find", attribute.String("entity.id", fmt.Sprint(id)))
	defer span.End()

	e, found, err := f.store.Fetch(ctx, id)
	if err != nil {
		return e, false, f.fail(span, err)
	}
	span.SetAttributes(attribute.Bool("entity.found", found))
	return e, found, nil
}

// FindAll 返回全部实体
func (f *Facade[T, ID]) FindAll(ctx context.Context) ([]T, error) {
	ctx, span := f.start(ctx, "find_all")
	defer span.End()

	all, err := f.store.FetchAll(ctx)
	if err != nil {
		return nil, f.fail(span, err)
	}
	span.SetAttributes(attribute.Int("entity.count", len(all)))
	return all, nil
}

// Edit 以实体自身标识整体替换存储中的值
func (f *Facade[T, ID]) Edit(ctx context.Context, e T) (T, error) {
	ctx, span := f.start(ctx, "edit", attribute.String("entity.id", fmt.Sprint(e.GetID())))
	defer span.End()

	updated, err := f.store.Update(ctx, e)
	if err != nil {
		return updated, f.fail(span, err)
	}
	return updated, nil
}

// Remove 删除实体。found 为 false 时（此前查找未命中）为空操作，既不报错也不访问存储。
func (f *Facade[T, ID]) Remove(ctx context.Context, e T, found bool) error {
	if !found {
		f.logger.Debug(ctx, "remove skipped, entity absent")
		return nil
	}
	ctx, span := f.start(ctx, "remove", attribute.String("entity.id", fmt.Sprint(e.GetID())))
	defer span.End()

	if err := f.store.Delete(ctx, e.GetID()); err != nil {
		return f.fail(span, err)
	}
	return nil
}

// RemoveByID 组合 Find 与 Remove，返回是否实际删除了实体
func (f *Facade[T, ID]) RemoveByID(ctx context.Context, id ID) (bool, error) {
	e, found, err := f.Find(ctx, id)
	if err != nil {
		return false, err
	}
	if err := f.Remove(ctx, e, found); err != nil {
		return false, err
	}
	return found, nil
}

func (f *Facade[T, ID]) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("entity.type", f.name))
	return f.tracer.Start(ctx, f.name+"."+op, trace.WithAttributes(attrs...))
}

func (f *Facade[T, ID]) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

var _ IFacade[domain.IEntity[int64], int64] = (*Facade[domain.IEntity[int64], int64])(nil)
