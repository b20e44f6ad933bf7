package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openmined/simlog/internal/server/auth"
	"github.com/openmined/simlog/internal/server/handlers/api"
	"github.com/openmined/simlog/internal/wire"
)

// HeaderAuth verifies the username and password headers against the registered keys.
func HeaderAuth(authSvc *auth.AuthService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		user := ctx.GetHeader(wire.HeaderUsername)
		key := ctx.GetHeader(wire.HeaderPassword)

		if err := authSvc.Verify(ctx.Request.Context(), user, key); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAuthInvalidCredentials, err)
			} else {
				api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
			}
			return
		}

		ctx.Set("user", user)
		ctx.Next()
	}
}
