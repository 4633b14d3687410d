package server

import (
	"net/http"

	programdomain "github.com/campbright/enroll/internal/program/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateProgram(c *gin.Context) {
	var req programdomain.CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	created, err := s.programSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (s *Server) GetProgram(c *gin.Context) {
	found, err := s.programSvc.GetByID(c.Request.Context(), c.Param("program_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, found)
}

func (s *Server) ListPrograms(c *gin.Context) {
	programs, err := s.programSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"programs": programs})
}

func (s *Server) UpdateProgramRates(c *gin.Context) {
	var req programdomain.UpdateRatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.programSvc.UpdateRates(c.Request.Context(), c.Param("program_id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
