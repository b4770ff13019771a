package security

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpx "childsvc/http"
	"childsvc/http/basic"
)

func newGate() *Gate {
	return NewGate(Config{Secret: "s3cret", Issuer: "childsvc", ProtectedPaths: []string{"/api/child/"}})
}

func TestGate_Protects(t *testing.T) {
	g := newGate()
	assert.True(t, g.Protects("/api/child"))
	assert.True(t, g.Protects("/api/child/1"))
	assert.False(t, g.Protects("/api/children"))
	assert.False(t, g.Protects("/healthz"))
}

func TestGate_IssueAndValidate(t *testing.T) {
	g := newGate()
	token, err := g.Issue("user-1")
	require.NoError(t, err)

	sub, err := g.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub)
}

func TestGate_ValidateFailures(t *testing.T) {
	g := newGate()

	_, err := g.Validate("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = g.Validate("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewGate(Config{Secret: "other", Issuer: "childsvc"})
	foreign, _ := other.Issue("user-1")
	_, err = g.Validate(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken, "密钥不同")

	wrongIssuer := NewGate(Config{Secret: "s3cret", Issuer: "someone-else"})
	tok, _ := wrongIssuer.Issue("user-1")
	_, err = g.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "签发者不同")

	expired := newGate()
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, _ = expired.Issue("user-1")
	_, err = g.Validate(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  "user-1",
		Issuer:   "childsvc",
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = g.Validate(noExpiry)
	assert.ErrorIs(t, err, ErrInvalidToken, "缺少 exp")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	_, err = g.Validate(none)
	assert.ErrorIs(t, err, ErrInvalidToken, "拒绝 alg=none")
}

func TestGate_IssueWithoutSecret(t *testing.T) {
	_, err := NewGate(Config{}).Issue("x")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestGate_Middleware(t *testing.T) {
	g := newGate()
	srv := basic.NewHTTPServer(nil)
	srv.Use(g.Middleware())

	var subject string
	srv.GET("/api/child", func(ctx httpx.IHttpContext) error {
		subject = httpx.GetSubject(ctx.GetContext())
		return ctx.JSON(http.StatusOK, []any{})
	})
	srv.GET("/healthz", func(ctx httpx.IHttpContext) error { return ctx.String(http.StatusOK, "ok") })
	h := srv.Handler()

	// 未携带令牌
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/child", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	var payload httpx.ErrorPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "UNAUTHORIZED", payload.Code)

	// 非受保护路径直接放行
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// 携带有效令牌
	token, err := g.Issue("user-7")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/child", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", subject)
}

func TestGate_DisabledPassesThrough(t *testing.T) {
	g := NewGate(Config{ProtectedPaths: []string{"/api/child"}})
	assert.False(t, g.Enabled())

	srv := basic.NewHTTPServer(nil)
	srv.Use(g.Middleware())
	srv.GET("/api/child", func(ctx httpx.IHttpContext) error { return ctx.WriteStatus(http.StatusOK) })

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/child", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearer(t *testing.T) {
	assert.Equal(t, "abc", bearer("Bearer abc"))
	assert.Equal(t, "abc", bearer("bearer  abc "))
	assert.Empty(t, bearer("Basic abc"))
	assert.Empty(t, bearer(""))
}
