package basic

import (
	"fmt"
	"net/http"
	"strconv"

	"childsvc/errors"
	httpx "childsvc/http"
	"childsvc/logging"
)

type HttpUtils struct{}

// ParseID 解析 int64 路径参数。只校验格式：未分配过的标识（含 0 与负数）交由存储判定为不存在
func (u *HttpUtils) ParseID(ctx httpx.IHttpContext, paramName string) (int64, error) {
	idStr := ctx.GetParam(paramName)
	if idStr == "" {
		return 0, errors.NewError(errors.ErrCodeInvalidInput, fmt.Sprintf("parameter %s cannot be empty", paramName))
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, errors.WrapError(err, errors.ErrCodeInvalidInput, fmt.Sprintf("parameter %s must be a valid integer", paramName))
	}
	return id, nil
}

// WriteErrorResponse 将错误写为统一的 JSON 错误响应；响应已写出时忽略
func (u *HttpUtils) WriteErrorResponse(ctx httpx.IHttpContext, err error) error {
	if httpx.IsResponseWritten(ctx) {
		return nil
	}

	status := httpx.StatusFromError(err)
	payload := httpx.ErrorPayloadFrom(err)
	if status >= http.StatusInternalServerError {
		logging.GetLogger().Error(ctx.GetContext(), "request failed",
			logging.String("method", ctx.GetMethod()),
			logging.String("path", ctx.GetPath()),
			logging.String("request_id", httpx.GetRequestID(ctx.GetContext())),
			logging.Error(err))
	}
	if jerr := ctx.JSON(status, payload); jerr != nil {
		_ = ctx.String(http.StatusInternalServerError, fmt.Sprintf("%s: %s", payload.Code, payload.Message))
	}
	return nil
}
