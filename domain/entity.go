package domain

// IObject 最基础的对象接口，所有实体的根接口。
type IObject[T comparable] interface {
	// GetID 返回对象的唯一标识
	GetID() T
}

// IEntity 可持久化实体接口。
//
// 标识由存储在创建时分配且只分配一次，此后在实体生命周期内不可变；
// 零值标识表示实体尚未持久化。
type IEntity[T comparable] interface {
	IObject[T]

	// SetID 由存储在插入时回填标识，业务代码不应调用
	SetID(id T)
}

// IsTransient 判断实体是否尚未分配标识。
func IsTransient[T IEntity[ID], ID comparable](e T) bool {
	var zero ID
	return e.GetID() == zero
}
