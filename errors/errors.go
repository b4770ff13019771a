package errors

import (
	stdErrors "errors"
	"fmt"
)

// ErrorCode 错误代码，同时作为错误响应体中的 code 字段
type ErrorCode string

const (
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// 存储后端（sql/redis/mongo）操作失败
	ErrCodeStore ErrorCode = "STORE_ERROR"
)

// IError 携带错误码的应用错误
type IError interface {
	error

	Code() ErrorCode

	// Message 可直接返回给客户端的消息，不含底层原因
	Message() string

	Cause() error
}

// AppError IError 的默认实现
type AppError struct {
	code    ErrorCode
	message string
	cause   error
}

// NewError 创建新错误
func NewError(code ErrorCode, message string) IError {
	return &AppError{code: code, message: message}
}

// WrapError 以指定错误码包装底层错误；err 为 nil 时返回 nil
func WrapError(err error, code ErrorCode, message string) IError {
	if err == nil {
		return nil
	}
	return &AppError{code: code, message: message, cause: err}
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

func (e *AppError) Code() ErrorCode { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Cause() error    { return e.cause }
func (e *AppError) Unwrap() error   { return e.cause }

// Is 同错误码的 AppError 视为相等，否则沿原因链比较
func (e *AppError) Is(target error) bool {
	if target == nil {
		return false
	}
	if appErr, ok := target.(*AppError); ok {
		return e.code == appErr.code
	}
	if e.cause != nil {
		return stdErrors.Is(e.cause, target)
	}
	return false
}

var (
	ErrInternal = NewError(ErrCodeInternal, "internal server error")
	ErrNotFound = NewError(ErrCodeNotFound, "resource not found")
)

// IsNotFound 检查是否为未找到错误
func IsNotFound(err error) bool {
	return IsErrorCode(err, ErrCodeNotFound)
}

// IsErrorCode 检查错误链中的 AppError 是否为指定错误代码
func IsErrorCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if err != nil && stdErrors.As(err, &appErr) {
		return appErr.code == code
	}
	return false
}

// GetErrorCode 获取错误代码；非 AppError 视为 INTERNAL_ERROR
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if stdErrors.As(err, &appErr) {
		return appErr.code
	}
	return ErrCodeInternal
}
