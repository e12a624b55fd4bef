package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListProgress(c *gin.Context) {
	resp, err := s.progressSvc.ListByUser(c.Request.Context(), userIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAchievements(c *gin.Context) {
	resp, err := s.achievementSvc.ListByUser(c.Request.Context(), userIDFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
