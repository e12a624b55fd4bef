package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	coursedomain "github.com/smallbiznis/academy/internal/course/domain"
)

type createCourseRequest struct {
	Name string `json:"name"`
}

type createLevelRequest struct {
	Name     string `json:"name"`
	Progress int    `json:"progress"`
}

func (s *Server) CreateCourse(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.courseSvc.CreateCourse(c.Request.Context(), coursedomain.CreateCourseRequest{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetCourse(c *gin.Context) {
	resp, err := s.courseSvc.GetCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateLevel(c *gin.Context) {
	var req createLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.courseSvc.CreateLevel(c.Request.Context(), coursedomain.CreateLevelRequest{
		CourseID: c.Param("courseId"),
		Name:     strings.TrimSpace(req.Name),
		Progress: req.Progress,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) PassLevel(c *gin.Context) {
	resp, err := s.courseSvc.PassLevel(c.Request.Context(), coursedomain.PassLevelRequest{
		CourseID: c.Param("courseId"),
		LevelID:  c.Param("levelId"),
		UserID:   userIDFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": resp})
}

func (s *Server) GetCourseCertificate(c *gin.Context) {
	resp, err := s.certificateSvc.GetByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
