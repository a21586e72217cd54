package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mparicahua/taskFlow3-server/internal/repository"
	"go.uber.org/zap"
)

// ListHandler handles board columns.
type ListHandler struct {
	lists    repository.ListRepository
	projects repository.ProjectRepository
	logger   *zap.Logger
}

func NewListHandler(lists repository.ListRepository, projects repository.ProjectRepository, logger *zap.Logger) *ListHandler {
	return &ListHandler{lists: lists, projects: projects, logger: logger}
}

type createListRequest struct {
	ProjectID int64  `json:"project_id" binding:"required"`
	Name      string `json:"name" binding:"required,max=100"`
	Position  *int   `json:"position"`
}

type updateListRequest struct {
	Name     *string `json:"name"`
	Position *int    `json:"position"`
	Active   *bool   `json:"active"`
}

// ListByProject handles GET /api/lists/project/:projectId — the full board:
// lists in order, each with its tasks.
func (h *ListHandler) ListByProject(c *gin.Context) {
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}

	lists, err := h.lists.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("failed to list lists", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list lists"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": lists, "count": len(lists)})
}

// Create handles POST /api/lists. Omitted position appends to the board.
func (h *ListHandler) Create(c *gin.Context) {
	var req createListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projects.GetByID(c.Request.Context(), req.ProjectID)
	if err != nil {
		h.logger.Error("project lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create list"})
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	position := -1
	if req.Position != nil {
		position = *req.Position
	}

	list, err := h.lists.Create(c.Request.Context(), req.ProjectID, req.Name, position)
	if err != nil {
		h.logger.Error("failed to create list", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create list"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": list})
}

// Update handles PUT /api/lists/:id. Setting active=false hides the list
// from the board without touching its tasks.
func (h *ListHandler) Update(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := h.lists.Update(c.Request.Context(), listID, req.Name, req.Position, req.Active)
	if err != nil {
		h.logger.Error("failed to update list", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update list"})
		return
	}
	if list == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}
