package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	cemeterydomain "github.com/smallbiznis/ecclesia/internal/cemetery/domain"
)

func (s *Server) CreateCemetery(c *gin.Context) {
	var req cemeterydomain.CreateCemeteryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.CreateCemetery(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCemeteries(c *gin.Context) {
	resp, err := s.cemeterySvc.ListCemeteries(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteCemetery(c *gin.Context) {
	if err := s.cemeterySvc.DeleteCemetery(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CreateParcel(c *gin.Context) {
	var req cemeterydomain.CreateParcelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.CreateParcel(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListParcels(c *gin.Context) {
	resp, err := s.cemeterySvc.ListParcels(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteParcel(c *gin.Context) {
	if err := s.cemeterySvc.DeleteParcel(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CreateRow(c *gin.Context) {
	var req cemeterydomain.CreateRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.CreateRow(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListRows(c *gin.Context) {
	resp, err := s.cemeterySvc.ListRows(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteRow(c *gin.Context) {
	if err := s.cemeterySvc.DeleteRow(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
