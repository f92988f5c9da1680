package meetings

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/assesshub/backend/internal/auth"
	"github.com/assesshub/backend/internal/middleware"
	"github.com/assesshub/backend/pkg/response"
)

// Handler exposes meeting operations over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a meeting handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts meeting routes. Guest join is the only route that
// does not require a verified caller.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, jwtService *auth.JWTService) {
	r.POST("/meetings/room/:code/join-as-guest", h.JoinAsGuest)

	authed := r.Group("", middleware.JWT(jwtService))
	authed.POST("/meetings", h.Create)
	authed.GET("/meetings/my-meetings", h.MyMeetings)
	authed.GET("/meetings/:id", h.GetByID)
	authed.GET("/meetings/:id/participants", h.Participants)
	authed.GET("/meetings/:id/recordings", h.Recordings)
	authed.POST("/meetings/:id/recordings/:recordingId/stop", h.StopRecording)
	authed.GET("/meetings/room/:code", h.GetByRoomCode)
	authed.POST("/meetings/room/:code/join", h.Join)
	authed.POST("/meetings/room/:code/disconnect", h.Disconnect)
	authed.POST("/meetings/room/:code/recordings/start", h.StartRecording)
}

type createMeetingRequest struct {
	Title                string    `json:"title" binding:"required"`
	Description          string    `json:"description"`
	ScheduledAt          time.Time `json:"scheduled_at" binding:"required"`
	ScreenSharingEnabled bool      `json:"screen_sharing_enabled"`
	MaxParticipants      int       `json:"max_participants"`
	RoomCode             string    `json:"room_code"`
}

// Create handles POST /meetings.
func (h *Handler) Create(c *gin.Context) {
	var req createMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	caller := middleware.IdentityFrom(c)

	meeting, err := h.service.CreateMeeting(c.Request.Context(), CreateMeetingInput{
		Title:                req.Title,
		Description:          req.Description,
		ScheduledAt:          req.ScheduledAt,
		ScreenSharingEnabled: req.ScreenSharingEnabled,
		MaxParticipants:      req.MaxParticipants,
		RoomCode:             req.RoomCode,
		CreatedBy:            caller.UserID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, meeting)
}

// GetByID handles GET /meetings/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	meeting, err := h.service.GetMeetingByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, meeting)
}

// GetByRoomCode handles GET /meetings/room/:code.
func (h *Handler) GetByRoomCode(c *gin.Context) {
	meeting, err := h.service.GetMeetingByRoomCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, meeting)
}

// MyMeetings handles GET /meetings/my-meetings.
func (h *Handler) MyMeetings(c *gin.Context) {
	caller := middleware.IdentityFrom(c)
	meetings, err := h.service.GetUserMeetings(c.Request.Context(), caller.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, meetings)
}

// Join handles POST /meetings/room/:code/join.
func (h *Handler) Join(c *gin.Context) {
	caller := middleware.IdentityFrom(c)
	participant, err := h.service.JoinMeeting(c.Request.Context(), c.Param("code"), caller)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, participant)
}

type guestJoinRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
}

// JoinAsGuest handles POST /meetings/room/:code/join-as-guest.
func (h *Handler) JoinAsGuest(c *gin.Context) {
	var req guestJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	participant, err := h.service.JoinMeetingAsGuest(c.Request.Context(), c.Param("code"), req.Name, req.Email)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, participant)
}

// Disconnect handles POST /meetings/room/:code/disconnect.
func (h *Handler) Disconnect(c *gin.Context) {
	caller := middleware.IdentityFrom(c)
	if err := h.service.DisconnectFromMeeting(c.Request.Context(), c.Param("code"), caller.UserID); err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"disconnected": true})
}

type startRecordingRequest struct {
	Name string `json:"name"`
}

// StartRecording handles POST /meetings/room/:code/recordings/start.
func (h *Handler) StartRecording(c *gin.Context) {
	var req startRecordingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}
	caller := middleware.IdentityFrom(c)
	recording, err := h.service.StartRecording(c.Request.Context(), c.Param("code"), caller.UserID, req.Name)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, recording)
}

// StopRecording handles POST /meetings/:id/recordings/:recordingId/stop.
func (h *Handler) StopRecording(c *gin.Context) {
	meetingID, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	recordingID, ok := parseUUID(c, "recordingId")
	if !ok {
		return
	}
	caller := middleware.IdentityFrom(c)
	recording, err := h.service.StopRecording(c.Request.Context(), meetingID, recordingID, caller.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, recording)
}

// Participants handles GET /meetings/:id/participants.
func (h *Handler) Participants(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	participants, err := h.service.GetMeetingParticipants(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, participants)
}

// Recordings handles GET /meetings/:id/recordings.
func (h *Handler) Recordings(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}
	recordings, err := h.service.GetMeetingRecordings(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, recordings)
}

func parseUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps engine error kinds to HTTP responses. Unclassified
// errors are logged in full and answered with a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch KindOf(err) {
	case KindNotFound:
		response.NotFound(c, err.Error())
	case KindInvalidState, KindCapacityExceeded, KindValidation:
		response.BadRequest(c, err.Error())
	case KindUnauthorized:
		response.Forbidden(c, err.Error())
	case KindConflict:
		response.Conflict(c, err.Error())
	case KindProvider:
		h.logger.Error("provider failure", zap.String("path", c.FullPath()), zap.Error(err))
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error("unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		response.Internal(c, "internal server error")
	}
}
