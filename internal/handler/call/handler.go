package call

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/handler"
	"github.com/Tate5000/Thera-stack/internal/middleware"
	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/service/assistant"
	"github.com/Tate5000/Thera-stack/internal/service/callgate"
)

type Handler struct {
	gate      *callgate.Gate
	assistant *assistant.Service
	auth      *middleware.AuthMiddleware
}

func NewHandler(gate *callgate.Gate, assistantSvc *assistant.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{gate: gate, assistant: assistantSvc, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	calls := r.Group("/calls")
	{
		calls.POST("", h.RequestVerification)
		calls.POST("/:id/verify", h.Verify)
		calls.POST("/:id/start", h.Start)
		calls.POST("/:id/end", h.End)
		calls.GET("/:id/access", h.CheckAccess)
		calls.GET("/:id", h.GetSession)
		calls.POST("/:id/summary", h.GenerateSummary)

		calls.POST("/:id/revoke",
			h.auth.RequirePermission(model.PermissionManageAssignments), h.Revoke)
	}
}

func (h *Handler) RequestVerification(c *gin.Context) {
	var req model.CallVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	sessionID, state, err := h.gate.RequestVerification(c.Request.Context(), &req)
	payload := gin.H{"session_id": sessionID, "state": state}

	var verr *callgate.VerificationError
	if errors.As(err, &verr) {
		payload["reason"] = verr.Reason
		c.JSON(http.StatusForbidden, handler.NewSuccessResponse(payload))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(payload))
}

func (h *Handler) Verify(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	state, err := h.gate.Verify(c.Request.Context(), id)
	if err != nil {
		var verr *callgate.VerificationError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusForbidden, handler.NewSuccessResponse(gin.H{
				"state":  state,
				"reason": verr.Reason,
			}))
		case errors.Is(err, callgate.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("session not found"))
		case errors.Is(err, callgate.ErrInvalidTransition):
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"state": state}))
}

func (h *Handler) Start(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	if err := h.gate.Start(c.Request.Context(), id); err != nil {
		h.writeGateError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"state": model.GateStateActive}))
}

func (h *Handler) End(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	if err := h.gate.End(c.Request.Context(), id); err != nil {
		h.writeGateError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"state": model.GateStateEnded}))
}

// CheckAccess answers whether patient data may flow into the call right
// now. A denial is a 200 with allowed=false; the decision is the payload,
// not an error.
func (h *Handler) CheckAccess(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	decision := h.gate.CheckCallAccess(c.Request.Context(), id)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(decision))
}

func (h *Handler) Revoke(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	if err := h.gate.Revoke(c.Request.Context(), id, model.DenyReasonRevokedAccess); err != nil {
		h.writeGateError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"state": model.GateStateRevoked}))
}

func (h *Handler) GetSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	session, err := h.gate.Session(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, callgate.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("session not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(session))
}

func (h *Handler) GenerateSummary(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	summary, err := h.assistant.GenerateSummary(c.Request.Context(), actor, id)
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrAccessDenied):
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
		case errors.Is(err, callgate.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("session not found"))
		default:
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(summary))
}

func (h *Handler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid session ID"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeGateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, callgate.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("session not found"))
	case errors.Is(err, callgate.ErrInvalidTransition):
		c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
	default:
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
	}
}
