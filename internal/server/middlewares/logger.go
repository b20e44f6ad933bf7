package middlewares

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	slogGin "github.com/samber/slog-gin"

	"github.com/openmined/simlog/internal/wire"
)

func Logger() gin.HandlerFunc {
	httpLogger := slog.Default().WithGroup("http")

	return slogGin.NewWithConfig(httpLogger, slogGin.Config{
		DefaultLevel:      slog.LevelInfo,
		ClientErrorLevel:  slog.LevelWarn,
		ServerErrorLevel:  slog.LevelError,
		WithRequestID:     true,
		WithRequestHeader: true,
		WithUserAgent:     true,
		Filters: []slogGin.Filter{
			slogGin.IgnorePath(wire.PathHealth),
		},
	})
}

func init() {
	// keys and the admin password travel in a plain header
	slogGin.HiddenRequestHeaders[wire.HeaderPassword] = struct{}{}
}
