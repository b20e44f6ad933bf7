package api

import (
	"github.com/gin-gonic/gin"

	"github.com/openmined/simlog/internal/wire"
)

// AbortWithError fails the request with the message as a plain text body and the
// machine readable code in the X-Error-Code header.
func AbortWithError(ctx *gin.Context, status int, code string, err error) {
	ctx.Abort()
	ctx.Error(err)
	ctx.Header(wire.HeaderErrorCode, code)
	ctx.String(status, err.Error())
}
