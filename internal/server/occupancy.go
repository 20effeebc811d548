package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	cemeterydomain "github.com/smallbiznis/ecclesia/internal/cemetery/domain"
)

func (s *Server) QueryOccupancy(c *gin.Context) {
	var query cemeterydomain.OccupancyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.QueryOccupancy(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp.Graves == nil {
		resp.Graves = []cemeterydomain.GraveOccupancy{}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Graves, "summary": resp.Summary})
}
