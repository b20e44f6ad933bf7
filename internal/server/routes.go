package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openmined/simlog/internal/server/handlers/admin"
	"github.com/openmined/simlog/internal/server/handlers/ingest"
	"github.com/openmined/simlog/internal/server/middlewares"
	"github.com/openmined/simlog/internal/version"
	"github.com/openmined/simlog/internal/wire"
)

func SetupRoutes(config *Config, svc *Services) (http.Handler, error) {
	r := gin.New()

	ingestH := ingest.New(svc.Ingest, config.MaxUploadSize)
	adminH := admin.New(svc.Auth, svc.Ingest)

	registerLimit, err := middlewares.RateLimiter(config.RateLimit.Register)
	if err != nil {
		return nil, err
	}

	r.Use(middlewares.Logger())
	r.Use(gin.Recovery())
	if config.HTTP.TLS() {
		r.Use(middlewares.Secure())
	}
	r.Use(middlewares.GZIP())
	r.Use(middlewares.CORS())

	r.GET("/", IndexHandler)
	r.GET(wire.PathHealth, HealthHandler)

	r.POST(wire.PathRegister, registerLimit, adminH.Register)
	r.POST(wire.PathCleanup, adminH.Cleanup)

	authed := r.Group("/")
	authed.Use(middlewares.HeaderAuth(svc.Auth))
	{
		authed.POST(wire.PathCheck, ingestH.Check)
		authed.POST(wire.PathUpload, ingestH.Upload)
		authed.POST(wire.PathUpdate, ingestH.Update)
	}

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "not found")
	})

	return r.Handler(), nil
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": version.Version,
	})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
