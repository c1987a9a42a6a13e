package rooms

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairtalk/backend/config"
	"github.com/pairtalk/backend/internal/middleware"
	"github.com/pairtalk/backend/internal/sessions"
	"github.com/pairtalk/backend/pkg/response"
)

const tokenValidSec = 3600 * 4 // one recording session

// Handler issues conferencing join tokens for session rooms.
type Handler struct {
	sessions *sessions.Service
	cfg      config.ZegoConfig
	logger   *zap.Logger
}

// NewHandler creates a rooms handler.
func NewHandler(sessionSvc *sessions.Service, cfg config.ZegoConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{sessions: sessionSvc, cfg: cfg, logger: logger}
}

// GetToken handles GET /sessions/:id/room-token. Either party of a session
// with a room may join it.
func (h *Handler) GetToken(c *gin.Context) {
	if h.cfg.AppID == 0 || h.cfg.ServerSecret == "" {
		response.ServiceUnavailable(c, "conferencing not configured (ZEGO_APP_ID, ZEGO_SERVER_SECRET)")
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		response.NotFound(c, "session not found")
		return
	}
	if !session.IsParty(userID) {
		response.Forbidden(c, "not a party to this session")
		return
	}
	if session.RoomID == "" {
		response.Conflict(c, "session has no room yet")
		return
	}

	token, err := GenerateRoomToken(h.cfg.AppID, h.cfg.ServerSecret, session.RoomID, userID.String(), tokenValidSec)
	if err != nil {
		h.logger.Error("room token generation failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, gin.H{"token": token, "app_id": h.cfg.AppID, "room_id": session.RoomID})
}
