package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairtalk/backend/internal/models"
	"github.com/pairtalk/backend/pkg/response"
	"github.com/pairtalk/backend/pkg/utils"
)

// PartnerHooks receives identity events the session service reacts to:
// a new account may resolve pending invites, an approval may unblock them.
type PartnerHooks interface {
	OnPartnerRegistered(ctx context.Context, email string, userID uuid.UUID) error
	OnPartnerApproved(ctx context.Context, userID uuid.UUID) error
}

// Handler handles authentication and account-approval endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	hooks  PartnerHooks
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwtService *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwtService, logger: logger}
}

// SetPartnerHooks wires the session service callbacks. Optional.
func (h *Handler) SetPartnerHooks(hooks PartnerHooks) {
	h.hooks = hooks
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string             `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	existing, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("register lookup failed", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}
	if existing != nil {
		response.Conflict(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "registration failed")
		return
	}
	user, err := h.repo.Create(c.Request.Context(), req.Email, hash, req.FullName, models.RoleParticipant)
	if err != nil {
		h.logger.Error("register insert failed", zap.Error(err))
		response.Internal(c, "registration failed")
		return
	}

	// Resolve any sessions that invited this email before the account existed.
	if h.hooks != nil {
		if err := h.hooks.OnPartnerRegistered(c.Request.Context(), user.Email, user.ID); err != nil {
			h.logger.Warn("partner registration hook failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		}
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "registration failed")
		return
	}
	response.Created(c, authResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("login lookup failed", zap.Error(err))
		response.Internal(c, "login failed")
		return
	}
	if user == nil || !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "login failed")
		return
	}
	response.OK(c, authResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}

// ListUsers handles GET /admin/users.
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.repo.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list users failed", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, users)
}

// ApproveUser handles PATCH /admin/users/:id/approve.
func (h *Handler) ApproveUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "approval failed")
		return
	}
	if user == nil {
		response.NotFound(c, "user not found")
		return
	}
	if err := h.repo.SetApproved(c.Request.Context(), id, true); err != nil {
		h.logger.Error("approve user failed", zap.Error(err), zap.String("user_id", id.String()))
		response.Internal(c, "approval failed")
		return
	}

	if h.hooks != nil {
		if err := h.hooks.OnPartnerApproved(c.Request.Context(), id); err != nil {
			h.logger.Warn("partner approval hook failed", zap.Error(err), zap.String("user_id", id.String()))
		}
	}
	response.OK(c, gin.H{"approved": true})
}
