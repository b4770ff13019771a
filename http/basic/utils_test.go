package basic

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"childsvc/errors"
	httpx "childsvc/http"
)

// helper to build a basic IHttpContext for tests.
func newTestContext(method, target string) (*HttpContext, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return NewBaseHttpContext(rec, req), rec
}

func TestHttpUtils_ParseID(t *testing.T) {
	utils := &HttpUtils{}

	// 正常路径
	ctx, _ := newTestContext(http.MethodGet, "/users/123")
	ctx.SetParam("id", "123")

	id, err := utils.ParseID(ctx, "id")
	if err != nil {
		t.Fatalf("ParseID returned error: %v", err)
	}
	if id != 123 {
		t.Fatalf("expected id=123, got %d", id)
	}

	// 空参数
	ctxEmpty, _ := newTestContext(http.MethodGet, "/users")
	_, err = utils.ParseID(ctxEmpty, "id")
	if code := errors.GetErrorCode(err); code != errors.ErrCodeInvalidInput {
		t.Fatalf("expected error code %s, got %s", errors.ErrCodeInvalidInput, code)
	}

	// 非数字
	ctxBad, _ := newTestContext(http.MethodGet, "/users/abc")
	ctxBad.SetParam("id", "abc")
	if _, err := utils.ParseID(ctxBad, "id"); errors.GetErrorCode(err) != errors.ErrCodeInvalidInput {
		t.Fatalf("expected invalid input for non-numeric id, got %v", err)
	}

	// 负数只做格式校验
	ctxNeg, _ := newTestContext(http.MethodGet, "/users/-1")
	ctxNeg.SetParam("id", "-1")
	if id, err := utils.ParseID(ctxNeg, "id"); err != nil || id != -1 {
		t.Fatalf("expected -1, got %d %v", id, err)
	}
}

func TestHttpUtils_WriteErrorResponse(t *testing.T) {
	utils := &HttpUtils{}

	ctx, rec := newTestContext(http.MethodGet, "/")
	// 使用预定义错误，验证状态码和 payload
	if err := utils.WriteErrorResponse(ctx, errors.ErrNotFound); err != nil {
		t.Fatalf("WriteErrorResponse returned error: %v", err)
	}

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}

	var payload httpx.ErrorPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	if payload.Code != string(errors.ErrCodeNotFound) {
		t.Fatalf("expected error code %s, got %s", errors.ErrCodeNotFound, payload.Code)
	}
	if payload.Message == "" {
		t.Fatalf("expected non-empty error message")
	}

	// 再次写入应被忽略（response_written 标记）
	if err := utils.WriteErrorResponse(ctx, errors.ErrInternal); err != nil {
		t.Fatalf("second WriteErrorResponse returned error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second write changed status to %d", rec.Code)
	}
}

func TestHttpUtils_WriteErrorResponse_StatusMapping(t *testing.T) {
	utils := &HttpUtils{}
	cases := map[errors.ErrorCode]int{
		errors.ErrCodeInvalidInput: http.StatusBadRequest,
		errors.ErrCodeUnauthorized: http.StatusUnauthorized,
		errors.ErrCodeConflict:     http.StatusConflict,
		errors.ErrCodeNotFound:     http.StatusNotFound,
		errors.ErrCodeStore:        http.StatusInternalServerError,
		errors.ErrCodeInternal:     http.StatusInternalServerError,
	}
	for code, want := range cases {
		ctx, rec := newTestContext(http.MethodGet, "/")
		_ = utils.WriteErrorResponse(ctx, errors.NewError(code, "x"))
		if rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", code, want, rec.Code)
		}
	}
}
