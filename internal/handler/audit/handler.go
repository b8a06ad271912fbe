package audit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Tate5000/Thera-stack/internal/handler"
	"github.com/Tate5000/Thera-stack/internal/middleware"
	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/service/audit"
)

type Handler struct {
	svc  *audit.Service
	auth *middleware.AuthMiddleware
}

func NewHandler(svc *audit.Service, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, auth: auth}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/audit")
	group.Use(h.auth.RequirePermission(model.PermissionViewAuditLogs))
	{
		group.GET("/logs", h.ListLogs)
	}
}

func (h *Handler) ListLogs(c *gin.Context) {
	filters := make(map[string]interface{})
	if v := c.Query("user_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid user ID"))
			return
		}
		filters["user_id"] = id
	}
	if v := c.Query("action"); v != "" {
		filters["action"] = v
	}
	if v := c.Query("entity_type"); v != "" {
		filters["entity_type"] = v
	}

	logs, err := h.svc.List(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(logs))
}
