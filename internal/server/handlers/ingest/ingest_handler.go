package ingest

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openmined/simlog/internal/server/handlers/api"
	"github.com/openmined/simlog/internal/server/ingest"
	"github.com/openmined/simlog/internal/server/store"
	"github.com/openmined/simlog/internal/wire"
)

const DefaultMaxUploadSize = 4 << 30 // 4 GiB

type IngestHandler struct {
	ingest        *ingest.Service
	maxUploadSize int64
}

func New(svc *ingest.Service, maxUploadSize int64) *IngestHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = DefaultMaxUploadSize
	}
	return &IngestHandler{ingest: svc, maxUploadSize: maxUploadSize}
}

func (h *IngestHandler) Check(ctx *gin.Context) {
	var req CheckRequest
	if err := ctx.ShouldBindHeader(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid headers: %w", err))
		return
	}

	name, found, err := h.ingest.Check(ctx.Request.Context(), req.ID)
	if err != nil {
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeStorageFailed, err)
		return
	}
	if !found {
		name = wire.NotFound
	}

	ctx.Header(wire.HeaderUploadName, name)
	ctx.String(http.StatusOK, "")
}

func (h *IngestHandler) Upload(ctx *gin.Context) {
	var req UploadRequest
	if err := ctx.ShouldBindHeader(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid headers: %w", err))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxUploadSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.AbortWithError(ctx, http.StatusRequestEntityTooLarge, api.CodeInvalidRequest, err)
			return
		}
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("read body: %w", err))
		return
	}

	rec, err := h.ingest.Ingest(ctx.Request.Context(), &ingest.Upload{
		Username:   ctx.GetString("user"),
		Collection: req.Collection,
		ID:         req.ID,
		Filename:   req.Filename,
		FileHash:   req.FileHash,
		Data:       data,
	})
	if err != nil {
		abortIngestError(ctx, err)
		return
	}

	ctx.Header(wire.HeaderUploadName, rec.UploadName)
	ctx.String(http.StatusOK, "Data received")
}

func (h *IngestHandler) Update(ctx *gin.Context) {
	var req UpdateRequest
	if err := ctx.ShouldBindHeader(&req); err != nil {
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, fmt.Errorf("invalid headers: %w", err))
		return
	}

	rec, data, err := h.ingest.Latest(ctx.Request.Context(), req.Collection)
	if err != nil {
		abortIngestError(ctx, err)
		return
	}

	ctx.Header(wire.HeaderID, rec.ID)
	ctx.Header(wire.HeaderParentID, rec.ParentID)
	ctx.Header(wire.HeaderUploadName, rec.UploadName)
	ctx.Data(http.StatusOK, "application/gzip", data)
}

func abortIngestError(ctx *gin.Context, err error) {
	var (
		extractionErr *ingest.ExtractionError
		storageErr    *ingest.StorageError
	)

	switch {
	case errors.Is(err, store.ErrDuplicate):
		api.AbortWithError(ctx, http.StatusConflict, api.CodeDedupConflict, err)
	case errors.Is(err, ingest.ErrHashMismatch):
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeHashMismatch, err)
	case errors.Is(err, ingest.ErrInvalidName):
		api.AbortWithError(ctx, http.StatusBadRequest, api.CodeInvalidRequest, err)
	case errors.Is(err, ingest.ErrEmptyCollection):
		api.AbortWithError(ctx, http.StatusNotFound, api.CodeCollectionEmpty, err)
	case errors.As(err, &extractionErr):
		api.AbortWithError(ctx, http.StatusUnprocessableEntity, api.CodeExtractionFailed, err)
	case errors.As(err, &storageErr):
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeStorageFailed, err)
	default:
		api.AbortWithError(ctx, http.StatusInternalServerError, api.CodeInternalError, err)
	}
}
