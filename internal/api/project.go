package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mparicahua/taskFlow3-server/internal/middleware"
	"github.com/mparicahua/taskFlow3-server/internal/repository"
	"github.com/mparicahua/taskFlow3-server/internal/ws"
	"go.uber.org/zap"
)

// ProjectHandler handles project boards and their membership. Mutations
// notify the realtime gateway after the database write commits, so
// connected clients refresh without polling.
type ProjectHandler struct {
	projects   repository.ProjectRepository
	membership repository.MembershipRepository
	users      repository.UserRepository
	roles      repository.RoleRepository
	gateway    *ws.Gateway
	logger     *zap.Logger
}

func NewProjectHandler(
	projects repository.ProjectRepository,
	membership repository.MembershipRepository,
	users repository.UserRepository,
	roles repository.RoleRepository,
	gateway *ws.Gateway,
	logger *zap.Logger,
) *ProjectHandler {
	return &ProjectHandler{
		projects:   projects,
		membership: membership,
		users:      users,
		roles:      roles,
		gateway:    gateway,
		logger:     logger,
	}
}

// OwnerRoleName is the role assigned to a project's creator. Its holder
// cannot be removed from the project.
const OwnerRoleName = "Owner"

type createProjectRequest struct {
	Name          string  `json:"name" binding:"required"`
	Description   *string `json:"description"`
	Collaborative *bool   `json:"collaborative"`
}

type updateProjectRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Collaborative *bool   `json:"collaborative"`
}

type addMemberRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	RoleID int64 `json:"role_id" binding:"required"`
}

// List handles GET /api/projects — all active projects with members.
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projects.ListActive(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list projects", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": projects, "count": len(projects)})
}

// ListMine handles GET /api/projects/mine — the caller's active projects.
func (h *ProjectHandler) ListMine(c *gin.Context) {
	userID := middleware.GetUserID(c)

	projects, err := h.projects.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list user projects", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list projects"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": projects, "count": len(projects)})
}

// Create handles POST /api/projects. The authenticated caller becomes the
// project's owner; project row and owner membership commit in one
// transaction before anyone is notified.
func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)

	ownerRole, err := h.roles.GetByName(c.Request.Context(), OwnerRoleName)
	if err != nil || ownerRole == nil {
		h.logger.Error("owner role lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		return
	}

	collaborative := true
	if req.Collaborative != nil {
		collaborative = *req.Collaborative
	}

	project, err := h.projects.Create(c.Request.Context(), req.Name, req.Description, collaborative, userID, ownerRole.ID)
	if err != nil {
		h.logger.Error("failed to create project", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create project"})
		return
	}

	// Committed — safe to notify. Only the creator's connections care:
	// nobody else is a member yet.
	h.gateway.ProjectCreated(project, userID)

	c.JSON(http.StatusCreated, gin.H{"data": project})
}

// Update handles PUT /api/projects/:id. Any member may edit.
func (h *ProjectHandler) Update(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	member, err := h.membership.GetMember(c.Request.Context(), projectID, userID)
	if err != nil {
		h.logger.Error("membership lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update project"})
		return
	}
	if member == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "you are not a member of this project"})
		return
	}

	project, err := h.projects.Update(c.Request.Context(), projectID, req.Name, req.Description, req.Collaborative)
	if err != nil {
		h.logger.Error("failed to update project", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update project"})
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	h.gateway.ProjectUpdated(c.Request.Context(), project)

	c.JSON(http.StatusOK, gin.H{"data": project})
}

// Delete handles DELETE /api/projects/:id — soft delete, owner only.
func (h *ProjectHandler) Delete(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	userID := middleware.GetUserID(c)
	member, err := h.membership.GetMember(c.Request.Context(), projectID, userID)
	if err != nil {
		h.logger.Error("membership lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete project"})
		return
	}
	if member == nil || member.RoleName != OwnerRoleName {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can delete this project"})
		return
	}

	// Soft delete keeps the project_members rows, so the fan-out after the
	// commit can still resolve its recipients.
	if err := h.projects.SoftDelete(c.Request.Context(), projectID); err != nil {
		h.logger.Error("failed to delete project", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete project"})
		return
	}

	h.gateway.ProjectDeleted(c.Request.Context(), projectID, userID)

	c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
}

// AddMember handles POST /api/projects/:id/members.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project, err := h.projects.GetByID(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("project lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}
	if project == nil || !project.Active {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), req.UserID)
	if err != nil {
		h.logger.Error("user lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	existing, err := h.membership.GetMember(c.Request.Context(), projectID, req.UserID)
	if err != nil {
		h.logger.Error("membership lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is already a member of this project"})
		return
	}

	member, err := h.membership.AddMember(c.Request.Context(), projectID, req.UserID, req.RoleID)
	if err != nil {
		h.logger.Error("failed to add member", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add member"})
		return
	}

	h.gateway.MemberAdded(c.Request.Context(), projectID, member)

	c.JSON(http.StatusOK, gin.H{"message": "member added", "data": member})
}

// RemoveMember handles DELETE /api/projects/:id/members/:userId.
// The owner cannot be removed.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	member, err := h.membership.GetMember(c.Request.Context(), projectID, userID)
	if err != nil {
		h.logger.Error("membership lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove member"})
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user is not a member of this project"})
		return
	}
	if member.RoleName == OwnerRoleName {
		c.JSON(http.StatusForbidden, gin.H{"error": "the project owner cannot be removed"})
		return
	}

	if err := h.membership.RemoveMember(c.Request.Context(), projectID, userID); err != nil {
		h.logger.Error("failed to remove member", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove member"})
		return
	}

	h.gateway.MemberRemoved(c.Request.Context(), projectID, userID)

	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

// RemoveAllMembers handles DELETE /api/projects/:id/members — clears the
// membership except the owner.
func (h *ProjectHandler) RemoveAllMembers(c *gin.Context) {
	projectID, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := h.projects.GetByID(c.Request.Context(), projectID)
	if err != nil {
		h.logger.Error("project lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove members"})
		return
	}
	if project == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}

	ownerRole, err := h.roles.GetByName(c.Request.Context(), OwnerRoleName)
	if err != nil || ownerRole == nil {
		h.logger.Error("owner role lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove members"})
		return
	}

	removed, err := h.membership.RemoveAllExceptRole(c.Request.Context(), projectID, ownerRole.ID)
	if err != nil {
		h.logger.Error("failed to remove members", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "members removed", "count": removed})
}

// pathID parses an int64 path parameter, answering 400 itself on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
