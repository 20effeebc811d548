package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	cemeterydomain "github.com/smallbiznis/ecclesia/internal/cemetery/domain"
)

type setMaintenanceRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) CreateGrave(c *gin.Context) {
	var req cemeterydomain.CreateGraveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.CreateGrave(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetGrave(c *gin.Context) {
	resp, err := s.cemeterySvc.GetGrave(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// UpdateGrave edits descriptive fields; a status in the body is ignored.
func (s *Server) UpdateGrave(c *gin.Context) {
	var req cemeterydomain.UpdateGraveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.cemeterySvc.UpdateGrave(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SetGraveMaintenance(c *gin.Context) {
	var req setMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Enabled == nil {
		AbortWithError(c, newValidationError("enabled", "required", "enabled is required"))
		return
	}

	resp, err := s.cemeterySvc.SetMaintenance(c.Request.Context(), strings.TrimSpace(c.Param("id")), *req.Enabled)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteGrave(c *gin.Context) {
	if err := s.cemeterySvc.DeleteGrave(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
