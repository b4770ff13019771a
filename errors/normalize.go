package errors

import (
	stdErrors "errors"

	"childsvc/domain"
)

// Normalize 将领域层/存储层的错误规范化为 AppError。
//
// 注意：
//   - 如果传入的 err 已经是 IError，则原样返回；
//   - 存储失败归为 STORE_ERROR，消息固定，原因只保留在错误链中；
//   - 未识别的错误保持原样（HTTP 层按 500 处理）。
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(IError); ok {
		return err
	}

	switch {
	case stdErrors.Is(err, domain.ErrEntityNotFound):
		return WrapError(err, ErrCodeNotFound, "entity not found")
	case stdErrors.Is(err, domain.ErrEntityAlreadyExists):
		return WrapError(err, ErrCodeConflict, "entity already exists")
	case stdErrors.Is(err, domain.ErrInvalidID):
		return WrapError(err, ErrCodeInvalidInput, "invalid entity id")
	case stdErrors.Is(err, domain.ErrRepositoryFailed):
		return WrapError(err, ErrCodeStore, "store operation failed")
	}

	return err
}
