package recordings

import (
	"errors"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pairtalk/backend/internal/middleware"
	"github.com/pairtalk/backend/internal/models"
	"github.com/pairtalk/backend/internal/pipeline"
	"github.com/pairtalk/backend/internal/sessions"
	"github.com/pairtalk/backend/pkg/queue"
	"github.com/pairtalk/backend/pkg/response"
	"github.com/pairtalk/backend/pkg/storage"
)

// Handler handles recording HTTP endpoints.
type Handler struct {
	repo      *Repository
	sessions  *sessions.Service
	s3        *storage.S3
	queue     *queue.Queue
	processor *pipeline.Processor
	logger    *zap.Logger
}

// NewHandler creates a recordings handler.
func NewHandler(repo *Repository, sessionSvc *sessions.Service, s3 *storage.S3, q *queue.Queue, processor *pipeline.Processor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, sessions: sessionSvc, s3: s3, queue: q, processor: processor, logger: logger}
}

type uploadURLRequest struct {
	FileName      string  `json:"file_name" binding:"required"`
	Duration      float64 `json:"duration"`
	FileSize      int64   `json:"file_size"`
	Format        string  `json:"format"`
	SampleRate    int     `json:"sample_rate"`
	Channels      int     `json:"channels"`
	RecordingType string  `json:"recording_type" binding:"required,oneof=local remote cloud"`
	SpeakerID     string  `json:"speaker_id" binding:"omitempty,oneof=spk0 spk1"`
}

// RequestUploadURL handles POST /sessions/:id/recordings/upload-url.
// Creates the recording row (metadata before bytes) and returns a presigned
// PUT URL for the raw blob. The first upload of a take also marks the session
// in progress.
func (h *Handler) RequestUploadURL(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "file_name and a valid recording_type are required")
		return
	}
	if !storage.ValidateAudioFileType(req.Format, req.FileName) {
		response.BadRequest(c, "unsupported audio format")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.sessionErr(c, err)
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

	rec := &models.Recording{
		RoomID:        session.RoomID,
		UserID:        userID,
		RecordingType: req.RecordingType,
		SpeakerID:     req.SpeakerID,
		FileName:      path.Base(req.FileName),
		Format:        req.Format,
		SampleRate:    req.SampleRate,
		Channels:      req.Channels,
		Duration:      req.Duration,
		FileSize:      req.FileSize,
		Status:        models.RecordingStatusPendingUpload,
	}
	rec.RawKey = storage.RawKey(session.RoomID, uuid.New().String(), rec.FileName)
	if err := h.repo.Create(c.Request.Context(), rec); err != nil {
		h.logger.Error("create recording row failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		response.Internal(c, "failed to create recording")
		return
	}

	contentType := req.Format
	if contentType == "" {
		contentType = storage.ContentTypeForFilename(rec.FileName)
	}
	uploadURL, err := h.s3.GeneratePresignedUploadURL(c.Request.Context(), rec.RawKey, contentType, h.s3.PresignExpire())
	if err != nil {
		h.logger.Error("presign upload failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
		response.Internal(c, "failed to generate upload URL")
		return
	}

	if _, err := h.sessions.StartRecording(c.Request.Context(), sessionID, userID); err != nil {
		// Already in progress or later is fine; the upload URL stands.
		h.logger.Debug("start recording transition skipped", zap.Error(err))
	}

	response.Created(c, gin.H{"upload_url": uploadURL, "recording_id": rec.ID})
}

// MarkUploaded handles POST /recordings/:id/uploaded. The client calls it
// after the direct PUT succeeds; processing is handed to the worker queue.
func (h *Handler) MarkUploaded(c *gin.Context) {
	rec, ok := h.recording(c)
	if !ok {
		return
	}
	if rec.UserID != c.MustGet(middleware.ContextUserID).(uuid.UUID) {
		response.Forbidden(c, "not the uploader of this recording")
		return
	}
	if err := h.repo.MarkUploaded(c.Request.Context(), rec.ID); err != nil {
		h.logger.Error("mark uploaded failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
		response.Internal(c, "failed to update recording")
		return
	}
	if err := h.queue.EnqueueRecordingProcess(c.Request.Context(), queue.RecordingProcessPayload{RecordingID: rec.ID}); err != nil {
		h.logger.Error("enqueue processing failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
		response.Internal(c, "failed to queue processing")
		return
	}
	response.OK(c, gin.H{"recording_id": rec.ID, "status": models.RecordingStatusUploaded})
}

type processRequest struct {
	FolderOverride int `json:"folder_override"`
}

// Process handles POST /recordings/:id/process (admin retry). Runs the
// pipeline synchronously; an already-processed recording returns its existing
// descriptor.
func (h *Handler) Process(c *gin.Context) {
	rec, ok := h.recording(c)
	if !ok {
		return
	}
	var req processRequest
	_ = c.ShouldBindJSON(&req) // body optional

	processed, err := h.processor.Process(c.Request.Context(), rec.ID, req.FolderOverride)
	if err != nil {
		h.logger.Error("process recording failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
		response.Internal(c, "processing failed: "+err.Error())
		return
	}
	response.OK(c, gin.H{
		"recording_id":     processed.ID,
		"processed_folder": processed.ProcessedFolder,
		"canonical_key":    processed.WavKey,
	})
}

// GenerateDownloadURL handles GET /recordings/:id/download-url. Prefers the
// canonical artifact once processed.
func (h *Handler) GenerateDownloadURL(c *gin.Context) {
	rec, ok := h.recording(c)
	if !ok {
		return
	}
	isAdmin := c.GetString(middleware.ContextUserRole) == string(models.RoleAdmin)
	if rec.UserID != c.MustGet(middleware.ContextUserID).(uuid.UUID) && !isAdmin {
		response.Forbidden(c, "not the uploader of this recording")
		return
	}
	key := rec.WavKey
	if key == "" {
		key = rec.RawKey
	}
	expire := h.s3.PresignExpire()
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), key, expire)
	if err != nil {
		h.logger.Error("presign download failed", zap.Error(err), zap.String("recording_id", rec.ID.String()))
		response.Internal(c, "failed to generate download URL")
		return
	}
	response.OK(c, gin.H{"download_url": url, "expires_in": int(expire.Seconds())})
}

// ListBySession handles GET /sessions/:id/recordings.
func (h *Handler) ListBySession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		h.sessionErr(c, err)
		return
	}
	isAdmin := c.GetString(middleware.ContextUserRole) == string(models.RoleAdmin)
	if !session.IsParty(userID) && !isAdmin {
		response.Forbidden(c, "not a party to this session")
		return
	}
	if session.RoomID == "" {
		response.OK(c, []models.Recording{})
		return
	}
	list, err := h.repo.ListByRoom(c.Request.Context(), session.RoomID)
	if err != nil {
		h.logger.Error("list recordings failed", zap.Error(err), zap.String("room_id", session.RoomID))
		response.Internal(c, "failed to list recordings")
		return
	}
	response.OK(c, list)
}

func (h *Handler) recording(c *gin.Context) (*models.Recording, bool) {
	recordingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid recording id")
		return nil, false
	}
	rec, err := h.repo.GetByID(c.Request.Context(), recordingID)
	if err != nil {
		h.logger.Error("get recording failed", zap.Error(err), zap.String("recording_id", recordingID.String()))
		response.Internal(c, "failed to load recording")
		return nil, false
	}
	if rec == nil {
		response.NotFound(c, "recording not found")
		return nil, false
	}
	return rec, true
}

func (h *Handler) sessionErr(c *gin.Context, err error) {
	if errors.Is(err, sessions.ErrSessionNotFound) {
		response.NotFound(c, "session not found")
		return
	}
	h.logger.Error("load session failed", zap.Error(err))
	response.Internal(c, "failed to load session")
}
