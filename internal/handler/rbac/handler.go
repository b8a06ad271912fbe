package rbac

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Tate5000/Thera-stack/internal/handler"
	"github.com/Tate5000/Thera-stack/internal/middleware"
	"github.com/Tate5000/Thera-stack/internal/model"
	"github.com/Tate5000/Thera-stack/internal/service/rbac"
)

// Handler exposes read-only views of the role registry and the caller's
// effective permissions.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/rbac")
	{
		group.GET("/roles", h.ListRoles)
		group.GET("/permissions", h.ListPermissions)
		group.GET("/me", h.MyPermissions)
	}
}

func (h *Handler) ListRoles(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(rbac.ListRoles()))
}

func (h *Handler) ListPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.Permissions()))
}

func (h *Handler) MyPermissions(c *gin.Context) {
	user := middleware.UserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"role":        user.Role,
		"permissions": rbac.EffectivePermissions(user).List(),
	}))
}
