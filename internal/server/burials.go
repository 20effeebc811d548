package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	cemeterydomain "github.com/smallbiznis/ecclesia/internal/cemetery/domain"
)

func (s *Server) CreateBurial(c *gin.Context) {
	var req cemeterydomain.CreateBurialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.CreateBurial(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListBurials(c *gin.Context) {
	var query cemeterydomain.ListBurialsRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.ListBurials(c.Request.Context(), cemeterydomain.ListBurialsRequest{
		GraveID: strings.TrimSpace(query.GraveID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBurial(c *gin.Context) {
	resp, err := s.cemeterySvc.GetBurial(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteBurial(c *gin.Context) {
	resp, err := s.cemeterySvc.DeleteBurial(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp, "grave": s.graveAfterDelete(c, resp.GraveID)})
}
