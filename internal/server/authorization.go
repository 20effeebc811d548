package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ecclesia/internal/orgcontext"
)

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.authorizeWithContext(c, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) authorizeWithContext(c *gin.Context, object string, action string) error {
	ctx := c.Request.Context()
	actor := orgcontext.ActorFromContext(ctx)
	if actor == "" {
		return ErrUnauthorized
	}
	parishID, ok := orgcontext.ParishIDFromContext(ctx)
	if !ok {
		return ErrParishRequired
	}
	if s.authzSvc == nil {
		return ErrForbidden
	}
	return s.authzSvc.Authorize(ctx, actor, parishID, strings.TrimSpace(object), strings.TrimSpace(action))
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

func (s *Server) AssignMemberRole(c *gin.Context) {
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()
	parishID, _ := orgcontext.ParishIDFromContext(ctx)
	userID := strings.TrimSpace(c.Param("user_id"))
	role := strings.TrimSpace(req.Role)
	if err := s.authzSvc.AssignRole(ctx, parishID, userID, role); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"parish_id": parishID,
		"user_id":   userID,
		"role":      role,
	}})
}
