package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/ecclesia/internal/audit/domain"
	"github.com/smallbiznis/ecclesia/pkg/db/pagination"
)

// auditTargets lists every target type the services record.
var auditTargets = map[string]struct{}{
	"cemetery":           {},
	"parcel":             {},
	"row":                {},
	"grave":              {},
	"concession":         {},
	"burial":             {},
	"client":             {},
	"member":             {},
	"authorization":      {},
	"concession_payment": {},
}

type auditLogQuery struct {
	PageToken  string `form:"page_token"`
	PageSize   int    `form:"page_size"`
	Actor      string `form:"actor"`
	Action     string `form:"action"`
	TargetType string `form:"target_type"`
	TargetID   string `form:"target_id"`
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var q auditLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	target := strings.ToLower(strings.TrimSpace(q.TargetType))
	if target != "" {
		if _, ok := auditTargets[target]; !ok {
			AbortWithError(c, newValidationError("target_type", "invalid_target_type", "unknown target type"))
			return
		}
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: pagination.Pagination{PageToken: strings.TrimSpace(q.PageToken), PageSize: q.PageSize},
		Actor:      strings.TrimSpace(q.Actor),
		Action:     strings.TrimSpace(q.Action),
		TargetType: target,
		TargetID:   strings.TrimSpace(q.TargetID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.AuditLogs, "page_info": resp.PageInfo})
}
