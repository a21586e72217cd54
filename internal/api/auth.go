package api

import (
	"math/rand"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mparicahua/taskFlow3-server/internal/auth"
	"github.com/mparicahua/taskFlow3-server/internal/config"
	"github.com/mparicahua/taskFlow3-server/internal/middleware"
	"github.com/mparicahua/taskFlow3-server/internal/repository"
	"go.uber.org/zap"
)

// AuthHandler handles registration, login, and the refresh-token
// lifecycle. Register/login/refresh are the only public endpoints;
// verify/logout/logout-all sit behind the auth middleware.
type AuthHandler struct {
	users    repository.UserRepository
	sessions repository.SessionRepository
	cfg      *config.Config
	logger   *zap.Logger
}

func NewAuthHandler(users repository.UserRepository, sessions repository.SessionRepository, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, cfg: cfg, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         any    `json:"user"`
}

// avatarColors is the palette avatars are assigned from at registration.
var avatarColors = []string{
	"#3B82F6", "#EF4444", "#10B981", "#8B5CF6",
	"#F59E0B", "#EC4899", "#06B6D4", "#84CC16",
}

// initialsFor derives a two-letter avatar badge from a display name:
// first and last word initials, or the first two letters of a single word.
func initialsFor(name string) string {
	words := strings.Fields(strings.TrimSpace(name))
	if len(words) == 0 {
		return "??"
	}
	if len(words) == 1 {
		w := []rune(words[0])
		if len(w) == 1 {
			return strings.ToUpper(string(w[0]))
		}
		return strings.ToUpper(string(w[:2]))
	}
	first := []rune(words[0])
	last := []rune(words[len(words)-1])
	return strings.ToUpper(string(first[0]) + string(last[0]))
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := h.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("failed to check existing user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	user, err := h.users.Create(
		c.Request.Context(),
		strings.TrimSpace(req.Name),
		email,
		hash,
		initialsFor(req.Name),
		avatarColors[rand.Intn(len(avatarColors))],
	)
	if err != nil {
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	h.issueTokens(c, user.ID, user.Email, user, http.StatusCreated)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		h.logger.Error("failed to find user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	// One generic error for "not found" and "wrong password": don't tell
	// an attacker which emails are registered.
	if user == nil || !auth.VerifyPassword(req.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if !user.Active {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is inactive"})
		return
	}

	h.issueTokens(c, user.ID, user.Email, user, http.StatusOK)
}

// Refresh handles POST /api/auth/refresh
//
// A refresh token is honored only while its session is live in the
// session store — logout and logout-all revoke sessions, so a revoked
// token fails here even before it expires.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := auth.ParseToken(req.RefreshToken, h.cfg.JWTRefreshSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}

	live, err := h.sessions.Exists(c.Request.Context(), claims.ID)
	if err != nil {
		h.logger.Error("failed to check session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	if !live {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session revoked"})
		return
	}

	accessToken, err := auth.GenerateAccessToken(claims.UserID, claims.Email, h.cfg.JWTAccessSecret, h.cfg.AccessTokenTTL)
	if err != nil {
		h.logger.Error("failed to generate access token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": accessToken})
}

// Verify handles GET /api/auth/verify — a cheap "is my token still good"
// probe for clients. The middleware already validated the token.
func (h *AuthHandler) Verify(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"user_id": middleware.GetUserID(c),
		"email":   middleware.GetEmail(c),
	})
}

// Logout handles POST /api/auth/logout — revokes the presented refresh
// token's session.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := auth.ParseToken(req.RefreshToken, h.cfg.JWTRefreshSecret)
	if err != nil {
		// Already invalid: logging out an expired token is a success.
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.sessions.Delete(c.Request.Context(), claims.ID); err != nil {
		h.logger.Error("failed to delete session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.Status(http.StatusNoContent)
}

// LogoutAll handles POST /api/auth/logout-all — revokes every session of
// the authenticated user.
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID := middleware.GetUserID(c)

	revoked, err := h.sessions.DeleteAllForUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to delete user sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions_revoked": revoked})
}

func (h *AuthHandler) issueTokens(c *gin.Context, userID int64, email string, user any, status int) {
	accessToken, err := auth.GenerateAccessToken(userID, email, h.cfg.JWTAccessSecret, h.cfg.AccessTokenTTL)
	if err != nil {
		h.logger.Error("failed to generate access token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	refreshToken, sessionID, err := auth.GenerateRefreshToken(userID, email, h.cfg.JWTRefreshSecret, h.cfg.RefreshTokenTTL)
	if err != nil {
		h.logger.Error("failed to generate refresh token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	if err := h.sessions.Save(c.Request.Context(), sessionID, userID, h.cfg.RefreshTokenTTL); err != nil {
		h.logger.Error("failed to save session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication failed"})
		return
	}

	c.JSON(status, tokenPairResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}
