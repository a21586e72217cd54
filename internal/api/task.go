package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mparicahua/taskFlow3-server/internal/models"
	"github.com/mparicahua/taskFlow3-server/internal/repository"
	"go.uber.org/zap"
)

// TaskHandler handles board cards, including the drag & drop move.
type TaskHandler struct {
	tasks  repository.TaskRepository
	lists  repository.ListRepository
	users  repository.UserRepository
	logger *zap.Logger
}

func NewTaskHandler(tasks repository.TaskRepository, lists repository.ListRepository, users repository.UserRepository, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, lists: lists, users: users, logger: logger}
}

type createTaskRequest struct {
	ListID      int64      `json:"list_id" binding:"required"`
	Title       string     `json:"title" binding:"required,max=150"`
	Description *string    `json:"description"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  *int64     `json:"assigned_to"`
	Position    *int       `json:"position"`
}

type updateTaskRequest struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	Priority      *string    `json:"priority"`
	DueDate       *time.Time `json:"due_date"`
	ClearDueDate  bool       `json:"clear_due_date"`
	AssignedTo    *int64     `json:"assigned_to"`
	ClearAssignee bool       `json:"clear_assignee"`
	Completed     *bool      `json:"completed"`
	Position      *int       `json:"position"`
}

type moveTaskRequest struct {
	ListID   int64 `json:"list_id" binding:"required"`
	Position int   `json:"position"`
}

func validPriority(p string) bool {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	}
	return false
}

// ListByList handles GET /api/tasks/list/:listId.
func (h *TaskHandler) ListByList(c *gin.Context) {
	listID, ok := pathID(c, "listId")
	if !ok {
		return
	}

	tasks, err := h.tasks.ListByList(c.Request.Context(), listID)
	if err != nil {
		h.logger.Error("failed to list tasks", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tasks, "count": len(tasks)})
}

// Get handles GET /api/tasks/:id.
func (h *TaskHandler) Get(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetByID(c.Request.Context(), taskID)
	if err != nil {
		h.logger.Error("failed to get task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get task"})
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": task})
}

// Create handles POST /api/tasks. Invalid priorities fall back to medium;
// omitted position appends to the list.
func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := h.lists.GetByID(c.Request.Context(), req.ListID)
	if err != nil {
		h.logger.Error("list lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}
	if list == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "list not found"})
		return
	}

	if req.AssignedTo != nil {
		user, err := h.users.GetByID(c.Request.Context(), *req.AssignedTo)
		if err != nil {
			h.logger.Error("assignee lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "assigned user not found"})
			return
		}
	}

	priority := req.Priority
	if !validPriority(priority) {
		priority = models.PriorityMedium
	}

	position := -1
	if req.Position != nil {
		position = *req.Position
	}

	task, err := h.tasks.Create(c.Request.Context(), models.Task{
		ListID:      req.ListID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
		Position:    position,
	})
	if err != nil {
		h.logger.Error("failed to create task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": task})
}

// Update handles PUT /api/tasks/:id.
func (h *TaskHandler) Update(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Priority != nil && !validPriority(*req.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	task, err := h.tasks.Update(c.Request.Context(), taskID, repository.TaskPatch{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		DueDate:       req.DueDate,
		ClearDueDate:  req.ClearDueDate,
		AssignedTo:    req.AssignedTo,
		ClearAssignee: req.ClearAssignee,
		Completed:     req.Completed,
		Position:      req.Position,
	})
	if err != nil {
		h.logger.Error("failed to update task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": task})
}

// Move handles PUT /api/tasks/:id/move — drag & drop across lists.
func (h *TaskHandler) Move(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req moveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	list, err := h.lists.GetByID(c.Request.Context(), req.ListID)
	if err != nil {
		h.logger.Error("list lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to move task"})
		return
	}
	if list == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "target list not found"})
		return
	}

	task, err := h.tasks.Move(c.Request.Context(), taskID, req.ListID, req.Position)
	if err != nil {
		h.logger.Error("failed to move task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to move task"})
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": task})
}

// Delete handles DELETE /api/tasks/:id.
func (h *TaskHandler) Delete(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), taskID); err != nil {
		h.logger.Error("failed to delete task", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}
