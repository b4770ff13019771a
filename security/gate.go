// Package security 提供基于 Bearer JWT（HS256）的访问门禁。
//
// 门禁以中间件形式包裹路由，只对显式配置的受保护路径前缀生效；
// 未配置密钥时门禁关闭，所有请求直接放行。
package security

import (
	stdErrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"childsvc/errors"
	httpx "childsvc/http"
	"childsvc/logging"
)

var (
	ErrMissingToken = stdErrors.New("missing bearer token")
	ErrInvalidToken = stdErrors.New("invalid token")
	ErrTokenExpired = stdErrors.New("token expired")
	ErrNoSecret     = stdErrors.New("jwt secret not configured")
)

// Config 门禁配置
type Config struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	ProtectedPaths []string      `mapstructure:"protected_paths"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
}

// Gate JWT 门禁
type Gate struct {
	secret    []byte
	issuer    string
	protected []string
	ttl       time.Duration
	logger    logging.Logger
	now       func() time.Time
}

// NewGate 创建门禁
func NewGate(cfg Config) *Gate {
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	protected := make([]string, 0, len(cfg.ProtectedPaths))
	for _, p := range cfg.ProtectedPaths {
		if p = strings.TrimRight(strings.TrimSpace(p), "/"); p != "" {
			protected = append(protected, p)
		}
	}
	return &Gate{
		secret:    []byte(cfg.Secret),
		issuer:    cfg.Issuer,
		protected: protected,
		ttl:       ttl,
		logger:    logging.GetLogger().WithFields(logging.String("component", "security")),
		now:       time.Now,
	}
}

// Enabled 是否启用（已配置密钥）
func (g *Gate) Enabled() bool { return len(g.secret) > 0 }

// Protects 路径是否受保护：与前缀相等或位于其下一级及更深
func (g *Gate) Protects(path string) bool {
	for _, p := range g.protected {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// Issue 为主体签发令牌
func (g *Gate) Issue(subject string) (string, error) {
	if !g.Enabled() {
		return "", ErrNoSecret
	}
	now := g.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    g.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
}

// Validate 校验令牌并返回主体
func (g *Gate) Validate(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if stdErrors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !token.Valid {
		return "", ErrInvalidToken
	}
	// jwt/v4 对缺少 exp 的令牌不做过期校验
	if claims.ExpiresAt == nil {
		return "", ErrInvalidToken
	}
	if g.issuer != "" && !claims.VerifyIssuer(g.issuer, true) {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// Middleware 门禁中间件：受保护路径缺少或携带无效令牌时返回 401
func (g *Gate) Middleware() httpx.Middleware {
	return func(ctx httpx.IHttpContext, next func() error) error {
		if !g.Enabled() || !g.Protects(ctx.GetPath()) {
			return next()
		}
		subject, err := g.Validate(bearer(ctx.GetHeader(httpx.HeaderAuthorization)))
		if err != nil {
			g.logger.Debug(ctx.GetContext(), "access denied",
				logging.String("path", ctx.GetPath()),
				logging.String("reason", err.Error()))
			ctx.SetHeader("WWW-Authenticate", `Bearer realm="childsvc"`)
			return errors.WrapError(err, errors.ErrCodeUnauthorized, err.Error())
		}
		ctx.SetContext(httpx.WithSubject(ctx.GetContext(), subject))
		return next()
	}
}

func bearer(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
