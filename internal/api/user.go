package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mparicahua/taskFlow3-server/internal/middleware"
	"github.com/mparicahua/taskFlow3-server/internal/repository"
	"go.uber.org/zap"
)

// UserHandler handles user listings and role definitions.
type UserHandler struct {
	users  repository.UserRepository
	roles  repository.RoleRepository
	logger *zap.Logger
}

func NewUserHandler(users repository.UserRepository, roles repository.RoleRepository, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, roles: roles, logger: logger}
}

// List handles GET /api/users — all active users, for member pickers.
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.users.ListActive(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users, "count": len(users)})
}

// ListAvailable handles GET /api/users/available/:projectId — active users
// not yet on the project, the candidate pool for "add member".
func (h *UserHandler) ListAvailable(c *gin.Context) {
	projectID, ok := pathID(c, "projectId")
	if !ok {
		return
	}

	users, err := h.users.ListAvailableForProject(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("failed to list available users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": users, "count": len(users)})
}

// ListRoles handles GET /api/users/roles.
func (h *UserHandler) ListRoles(c *gin.Context) {
	roles, err := h.roles.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list roles", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list roles"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": roles})
}

// GetMe handles GET /api/users/me — the authenticated user's own profile.
func (h *UserHandler) GetMe(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": user})
}
