package domain

import "fmt"

// RepositoryError 通用仓储错误
type RepositoryError struct {
	Code     string
	Message  string
	EntityID any
	Cause    error
}

func (e *RepositoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *RepositoryError) Unwrap() error {
	return e.Cause
}

// Is 按错误码比较，使 errors.Is(NewNotFoundError(...), ErrEntityNotFound) 成立
func (e *RepositoryError) Is(target error) bool {
	t, ok := target.(*RepositoryError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// 常见仓储错误
var (
	ErrEntityNotFound      = &RepositoryError{Code: "ENTITY_NOT_FOUND", Message: "entity not found"}
	ErrEntityAlreadyExists = &RepositoryError{Code: "ENTITY_ALREADY_EXISTS", Message: "entity already exists"}
	ErrInvalidID           = &RepositoryError{Code: "INVALID_ID", Message: "invalid entity id"}
	ErrRepositoryFailed    = &RepositoryError{Code: "REPOSITORY_FAILED", Message: "repository operation failed"}
)

// NewNotFoundError 创建携带实体标识的未找到错误
func NewNotFoundError(id any, format string, args ...any) *RepositoryError {
	return &RepositoryError{
		Code:     ErrEntityNotFound.Code,
		Message:  fmt.Sprintf(format, args...),
		EntityID: id,
	}
}

// NewRepositoryError 包装底层存储错误
func NewRepositoryError(op string, cause error) *RepositoryError {
	return &RepositoryError{
		Code:    ErrRepositoryFailed.Code,
		Message: op,
		Cause:   cause,
	}
}
