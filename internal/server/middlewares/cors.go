package middlewares

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/openmined/simlog/internal/wire"
)

func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type", "Content-Length", "Accept-Encoding",
			wire.HeaderUsername, wire.HeaderPassword, wire.HeaderCollection,
			wire.HeaderFilename, wire.HeaderFileHash, wire.HeaderID, wire.HeaderDeviceID,
		},
		ExposeHeaders: []string{
			wire.HeaderUploadName, wire.HeaderKey, wire.HeaderID, wire.HeaderParentID, wire.HeaderErrorCode,
		},
		AllowCredentials: false,
	})
}
