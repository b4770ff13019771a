package api

import (
	"net/http"

	httpx "childsvc/http"
)

// RegisterHealth 注册存活探针 GET {path}
func RegisterHealth(group httpx.IRouteGroup, path string) {
	group.GET(path, func(c httpx.IHttpContext) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "UP"})
	})
}
