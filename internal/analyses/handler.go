package analyses

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"autograde-backend/internal/artifact"
	"autograde-backend/internal/detector"
	"autograde-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the engine. Paths are part of
// the public contract and live at the root, not under an API prefix.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/analyze-vehicle/", h.analyze)
	r.GET("/results/:filename", h.fetchAnnotated)
	r.GET("/uploads/:filename", h.fetchOriginal)
	r.GET("/analyses", h.list)
}

func (h *Handler) analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "unable to read file", nil)
		return
	}

	a, err := h.Svc.Analyze(c.Request.Context(), fileHeader.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, err.Error(), nil)
		case errors.Is(err, detector.ErrEngine):
			respond.Error(c, http.StatusInternalServerError, ErrorCodeEngine, "damage analysis failed", nil)
		case errors.Is(err, ErrStorage):
			respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to store analysis artifacts", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to analyze image", nil)
		}
		return
	}

	c.Set("analysisId", a.ID)
	respond.OK(c, toResult(a))
}

func (h *Handler) fetchAnnotated(c *gin.Context) {
	h.fetchArtifact(c, artifact.RoleAnnotated)
}

func (h *Handler) fetchOriginal(c *gin.Context) {
	h.fetchArtifact(c, artifact.RoleOriginal)
}

func (h *Handler) fetchArtifact(c *gin.Context, role artifact.Role) {
	data, contentType, err := h.Svc.FetchArtifact(c.Request.Context(), role, c.Param("filename"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "File not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeStorage, "failed to read artifact", nil)
		}
		return
	}

	c.Data(http.StatusOK, contentType, data)
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	offset := 0

	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}

	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	items, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list analyses", nil)
		return
	}

	resp := make([]ListItem, 0, len(items))
	for _, a := range items {
		resp = append(resp, toListItem(a))
	}

	respond.OK(c, resp)
}
