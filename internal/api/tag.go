package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mparicahua/taskFlow3-server/internal/repository"
	"go.uber.org/zap"
)

// TagHandler handles task labels.
type TagHandler struct {
	tags   repository.TagRepository
	logger *zap.Logger
}

func NewTagHandler(tags repository.TagRepository, logger *zap.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

// List handles GET /api/tags.
func (h *TagHandler) List(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list tags", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tags"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tags, "count": len(tags)})
}
