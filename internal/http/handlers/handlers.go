package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/campusfix/dispatch/internal/campus"
	"github.com/campusfix/dispatch/internal/service"
)

type Handler struct {
	Engine    *service.Engine
	Catalog   *campus.Catalog
	Validator *validator.Validate
	Logger    zerolog.Logger
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Engine.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) now() time.Time {
	if h.Engine.Now != nil {
		return h.Engine.Now().UTC()
	}
	return time.Now().UTC()
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// StatusFor maps an engine error code to its HTTP status.
func StatusFor(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeConflict, service.CodeInvalidTransition:
		return http.StatusConflict
	case service.CodeNoAvailableTechnician:
		return http.StatusUnprocessableEntity
	case service.CodeValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeEngineError reports an engine failure with its machine-readable kind.
// Dependency failures are logged; the rest are the caller's problem.
func (h *Handler) writeEngineError(c *gin.Context, message string, err error) {
	code := service.Kind(err)
	status := StatusFor(code)
	if status == http.StatusInternalServerError {
		h.Logger.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	}
	writeError(c, status, code, message, err.Error())
}

// bind decodes the JSON body into req and validates it; false means an error
// response has already been written.
func (h *Handler) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, service.CodeValidation, "Validation failed", validationDetails(err))
		return false
	}
	return true
}

// bindOptional is bind for endpoints whose body may be omitted. An empty body
// leaves req untouched; ContentLength is not consulted since chunked requests
// report it as unknown.
func (h *Handler) bindOptional(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			return true
		}
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return false
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, service.CodeValidation, "Validation failed", validationDetails(err))
		return false
	}
	return true
}

func queryList(c *gin.Context, key string) []string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}

func pageParams(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
