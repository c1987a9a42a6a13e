package sessions

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairtalk/backend/internal/models"
	"github.com/pairtalk/backend/pkg/response"
)

// Handler handles task-session HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a sessions handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

type createRequest struct {
	TaskTypeID   string `json:"task_type_id" binding:"required"`
	PartnerEmail string `json:"partner_email"`
}

// Create handles POST /sessions.
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "task_type_id is required")
		return
	}
	userID := c.MustGet("user_id").(uuid.UUID)
	session, err := h.svc.Create(c.Request.Context(), req.TaskTypeID, userID, req.PartnerEmail)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.Created(c, session)
}

// List handles GET /sessions (current user's sessions, both roles).
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet("user_id").(uuid.UUID)
	list, err := h.svc.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, list)
}

// GetByID handles GET /sessions/:id. The read reconciles partner state.
func (h *Handler) GetByID(c *gin.Context) {
	sessionID, userID, ok := h.sessionAndUser(c)
	if !ok {
		return
	}
	session, err := h.svc.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	if !session.IsParty(userID) && c.GetString("user_role") != string(models.RoleAdmin) {
		response.Forbidden(c, "not a party to this session")
		return
	}
	response.OK(c, session)
}

type inviteRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// Invite handles POST /sessions/:id/invite.
func (h *Handler) Invite(c *gin.Context) {
	sessionID, userID, ok := h.sessionAndUser(c)
	if !ok {
		return
	}
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "a valid email is required")
		return
	}
	session, err := h.svc.InvitePartner(c.Request.Context(), sessionID, req.Email, userID)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.OK(c, session)
}

// CreateRoom handles POST /sessions/:id/room.
func (h *Handler) CreateRoom(c *gin.Context) {
	sessionID, userID, ok := h.sessionAndUser(c)
	if !ok {
		return
	}
	session, err := h.svc.CreateRoom(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.OK(c, session)
}

// Complete handles POST /sessions/:id/complete.
func (h *Handler) Complete(c *gin.Context) {
	sessionID, userID, ok := h.sessionAndUser(c)
	if !ok {
		return
	}
	session, err := h.svc.Complete(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.OK(c, session)
}

// ListPendingReview handles GET /admin/sessions.
func (h *Handler) ListPendingReview(c *gin.Context) {
	list, err := h.svc.ListPendingReview(c.Request.Context())
	if err != nil {
		h.logger.Error("list pending review failed", zap.Error(err))
		response.Internal(c, "failed to list sessions")
		return
	}
	response.OK(c, list)
}

// AdminApprove handles PATCH /admin/sessions/:id/approve.
func (h *Handler) AdminApprove(c *gin.Context) {
	h.adminTransition(c, h.svc.AdminApprove)
}

// AdminReject handles PATCH /admin/sessions/:id/reject.
func (h *Handler) AdminReject(c *gin.Context) {
	h.adminTransition(c, h.svc.AdminReject)
}

type reviewerStatusRequest struct {
	ReviewerStatus models.ReviewerStatus `json:"reviewer_status" binding:"required,oneof=approved rejected unsure"`
}

// SetReviewerStatus handles PATCH /admin/sessions/:id/reviewer-status.
func (h *Handler) SetReviewerStatus(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req reviewerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "reviewer_status must be approved, rejected or unsure")
		return
	}
	session, err := h.svc.SetReviewerStatus(c.Request.Context(), sessionID, req.ReviewerStatus)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.OK(c, session)
}

type paidRequest struct {
	Paid *bool `json:"paid" binding:"required"`
}

// SetPaid handles PATCH /admin/sessions/:id/paid.
func (h *Handler) SetPaid(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req paidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "paid is required")
		return
	}
	session, err := h.svc.SetPaid(c.Request.Context(), sessionID, *req.Paid)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.OK(c, session)
}

func (h *Handler) adminTransition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*models.TaskSession, error)) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	session, err := fn(c.Request.Context(), sessionID)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	response.OK(c, session)
}

func (h *Handler) sessionAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, uuid.Nil, false
	}
	userID := c.MustGet("user_id").(uuid.UUID)
	return sessionID, userID, true
}

func (h *Handler) respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, "session not found")
	case errors.Is(err, ErrInvalidTaskType):
		response.BadRequest(c, "unknown task type")
	case errors.Is(err, ErrPartnerIsSelf):
		response.BadRequest(c, "you cannot invite yourself as partner")
	case errors.Is(err, ErrPartnerNotApproved):
		response.Conflict(c, "partner not yet approved")
	case errors.Is(err, ErrNotPendingReview):
		response.Conflict(c, "session is not pending review")
	case errors.Is(err, ErrInvalidTransition):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrNotInitiator), errors.Is(err, ErrNotParty):
		response.Forbidden(c, "not allowed for this session")
	default:
		h.logger.Error("session operation failed", zap.Error(err))
		response.Internal(c, "session operation failed")
	}
}
