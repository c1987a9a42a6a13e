package notify

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairtalk/backend/pkg/response"
)

// Handler handles invitation email admin endpoints.
type Handler struct {
	mailer *Mailer
	logger *zap.Logger
}

// NewHandler creates a notify handler.
func NewHandler(mailer *Mailer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{mailer: mailer, logger: logger}
}

// Resend handles POST /admin/emails/:id/resend.
func (h *Handler) Resend(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid email id")
		return
	}
	if err := h.mailer.Resend(c.Request.Context(), id); err != nil {
		h.logger.Error("resend invite failed", zap.Error(err), zap.String("invite_email_id", id.String()))
		response.Internal(c, "failed to resend invitation")
		return
	}
	response.OK(c, gin.H{"queued": true})
}
