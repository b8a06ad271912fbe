package billing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/handler"
	"github.com/Tate5000/Thera-stack/internal/middleware"
	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
	"github.com/Tate5000/Thera-stack/internal/service/billing"
)

type Handler struct {
	svc  *billing.Service
	auth *middleware.AuthMiddleware
}

func NewHandler(svc *billing.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/billing")
	{
		group.GET("/cpt-codes", h.ListCPTCodes)
		group.GET("/diagnosis-codes", h.ListDiagnosisCodes)
		group.GET("/superbills/:id", h.GetSuperbill)
		group.GET("/patients/:patientId/superbills", h.ListByPatient)

		manage := group.Group("")
		manage.Use(h.auth.RequirePermission(model.PermissionManageBilling))
		{
			manage.POST("/superbills", h.CreateSuperbill)
			manage.POST("/superbills/:id/submit", h.Submit)
			manage.POST("/superbills/:id/paid", h.MarkPaid)
			manage.POST("/superbills/:id/deny", h.Deny)
		}
	}
}

func (h *Handler) CreateSuperbill(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	var req model.CreateSuperbillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.svc.CreateSuperbill(c.Request.Context(), actor, &req)
	if err != nil {
		if errors.Is(err, billing.ErrAccessDenied) {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
}

func (h *Handler) GetSuperbill(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid superbill ID"))
		return
	}

	superbill, err := h.svc.GetSuperbill(c.Request.Context(), actor, id)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrAccessDenied):
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("superbill not found"))
		default:
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(superbill))
}

func (h *Handler) ListByPatient(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient ID"))
		return
	}

	superbills, err := h.svc.ListByPatient(c.Request.Context(), actor, patientID)
	if err != nil {
		if errors.Is(err, billing.ErrAccessDenied) {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(superbills))
}

func (h *Handler) Submit(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid superbill ID"))
		return
	}

	var req struct {
		ClaimNumber string `json:"claim_number" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	superbill, err := h.svc.Submit(c.Request.Context(), actor, id, req.ClaimNumber)
	if err != nil {
		h.writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(superbill))
}

func (h *Handler) MarkPaid(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid superbill ID"))
		return
	}

	var req struct {
		Amount float64 `json:"amount" binding:"required,gt=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	superbill, err := h.svc.MarkPaid(c.Request.Context(), actor, id, req.Amount)
	if err != nil {
		h.writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(superbill))
}

func (h *Handler) Deny(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid superbill ID"))
		return
	}

	var req struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	superbill, err := h.svc.Deny(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.writeTransitionError(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(superbill))
}

func (h *Handler) ListCPTCodes(c *gin.Context) {
	codes, err := h.svc.ListCPTCodes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(codes))
}

func (h *Handler) ListDiagnosisCodes(c *gin.Context) {
	codes, err := h.svc.ListDiagnosisCodes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(codes))
}

func (h *Handler) writeTransitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrAccessDenied):
		c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
	case errors.Is(err, billing.ErrInvalidTransition):
		c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("superbill not found"))
	default:
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
	}
}
