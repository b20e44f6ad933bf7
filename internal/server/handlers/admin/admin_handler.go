package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openmined/simlog/internal/server/auth"
	"github.com/openmined/simlog/internal/server/handlers/api"
	"github.com/openmined/simlog/internal/server/ingest"
	"github.com/openmined/simlog/internal/wire"
)

type AdminHandler struct {
	auth   *auth.AuthService
	ingest *ingest.Service
}

func New(auth *auth.AuthService, ingest *ingest.Service) *AdminHandler {
	return &AdminHandler{auth: auth, ingest: ingest}
}

func (h *AdminHandler) Register(ctx *gin.Context) {
	var req RegisterRequest
	if err := ctx.ShouldBindHeader(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid headers: %w", err))
		return
	}

	key, err := h.auth.Register(ctx.Request.Context(), req.Password, req.Username)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccessDenied):
			api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAccessDenied, err)
		case errors.Is(err, auth.ErrInvalidUsername):
			api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
		default:
			api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeAuthRegisterFailed, err)
		}
		return
	}

	ctx.Header(wire.HeaderKey, key)
	ctx.String(http.StatusOK, "New user created successfully")
}

func (h *AdminHandler) Cleanup(ctx *gin.Context) {
	var req CleanupRequest
	if err := ctx.ShouldBindHeader(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid headers: %w", err))
		return
	}
	if !h.auth.IsAdmin(req.Password) {
		api.AbortWithError(ctx, http.StatusUnauthorized, api.CodeAccessDenied, auth.ErrAccessDenied)
		return
	}

	removed, err := h.ingest.Cleanup(ctx.Request.Context())
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeStorageFailed, err)
		return
	}

	var sb strings.Builder
	for _, key := range removed {
		sb.WriteString(key)
		sb.WriteByte('\n')
	}
	ctx.String(http.StatusOK, sb.String())
}
