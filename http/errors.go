package http

import (
	"net/http"

	"childsvc/errors"
)

// StatusFromError 将错误（规范化后）映射为 HTTP 状态码；非 AppError 一律 500
func StatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	appErr, ok := errors.Normalize(err).(errors.IError)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Code() {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrorPayloadFrom 构造错误响应体；非 AppError 不暴露内部错误信息
func ErrorPayloadFrom(err error) *ErrorPayload {
	if appErr, ok := errors.Normalize(err).(errors.IError); ok {
		return NewErrorResponse(string(appErr.Code()), appErr.Message(), "")
	}
	return NewErrorResponse(string(errors.ErrCodeInternal), "internal server error", "")
}
