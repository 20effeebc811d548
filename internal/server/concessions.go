package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	cemeterydomain "github.com/smallbiznis/ecclesia/internal/cemetery/domain"
)

func (s *Server) CreateConcession(c *gin.Context) {
	var req cemeterydomain.CreateConcessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.CreateConcession(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListConcessions(c *gin.Context) {
	var query cemeterydomain.ListConcessionsRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.ListConcessions(c.Request.Context(), cemeterydomain.ListConcessionsRequest{
		GraveID: strings.TrimSpace(query.GraveID),
		Status:  strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetConcession(c *gin.Context) {
	resp, err := s.cemeterySvc.GetConcession(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateConcession(c *gin.Context) {
	var req cemeterydomain.UpdateConcessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.UpdateConcession(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// DeleteConcession returns the removed concession together with the grave
// as it stands after the recompute.
func (s *Server) DeleteConcession(c *gin.Context) {
	ctx := c.Request.Context()
	resp, err := s.cemeterySvc.DeleteConcession(ctx, strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp, "grave": s.graveAfterDelete(c, resp.GraveID)})
}

func (s *Server) ExpireConcessions(c *gin.Context) {
	resp, err := s.cemeterySvc.ExpireConcessions(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp.GravesAffected == nil {
		resp.GravesAffected = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// graveAfterDelete is best effort: the deletion already committed, so a
// failed read only drops the grave from the response.
func (s *Server) graveAfterDelete(c *gin.Context, graveID string) any {
	grave, err := s.cemeterySvc.GetGrave(c.Request.Context(), graveID)
	if err != nil {
		return nil
	}
	return grave
}
