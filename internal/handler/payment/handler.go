package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/handler"
	"github.com/Tate5000/Thera-stack/internal/middleware"
	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/repository"
	"github.com/Tate5000/Thera-stack/internal/service/payment"
)

type Handler struct {
	svc  *payment.Service
	auth *middleware.AuthMiddleware
}

func NewHandler(svc *payment.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/payments")
	{
		group.GET("/patients/:patientId", h.ListByPatient)
		group.POST("/process", h.ProcessPayment)
		group.POST("/methods", h.AddPaymentMethod)
		group.GET("/methods/:userId", h.ListPaymentMethods)

		manage := group.Group("")
		manage.Use(h.auth.RequirePermission(model.PermissionManageBilling))
		{
			manage.POST("", h.CreatePayment)
		}
	}
}

func (h *Handler) CreatePayment(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	var req model.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	created, err := h.svc.CreatePayment(c.Request.Context(), actor, &req)
	if err != nil {
		if errors.Is(err, payment.ErrAccessDenied) {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(created))
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

	payments, err := h.svc.ListByPatient(c.Request.Context(), actor, patientID)
	if err != nil {
		if errors.Is(err, payment.ErrAccessDenied) {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(payments))
}

func (h *Handler) ProcessPayment(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	var req model.ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	paid, err := h.svc.ProcessPayment(c.Request.Context(), actor, &req)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrAccessDenied):
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
		case errors.Is(err, payment.ErrAlreadyPaid):
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
		case errors.Is(err, payment.ErrMethodUnknown):
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, handler.NewErrorResponse("payment not found"))
		default:
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(paid))
}

func (h *Handler) AddPaymentMethod(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	var method model.PaymentMethod
	if err := c.ShouldBindJSON(&method); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.svc.AddPaymentMethod(c.Request.Context(), actor, &method); err != nil {
		if errors.Is(err, payment.ErrAccessDenied) {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(method))
}

func (h *Handler) ListPaymentMethods(c *gin.Context) {
	actor := middleware.UserFromContext(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
		return
	}

	methods, err := h.svc.ListPaymentMethods(c.Request.Context(), actor, userID)
	if err != nil {
		if errors.Is(err, payment.ErrAccessDenied) {
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(methods))
}
