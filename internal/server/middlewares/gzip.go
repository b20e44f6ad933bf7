package middlewares

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/openmined/simlog/internal/wire"
)

// archives are already gzipped
var excludedPaths = []string{
	wire.PathHealth,
	wire.PathUpload,
	wire.PathUpdate,
}

func GZIP() gin.HandlerFunc {
	return gzip.Gzip(
		gzip.BestSpeed,
		gzip.WithExcludedPaths(excludedPaths),
	)
}
