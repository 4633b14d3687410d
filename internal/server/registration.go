package server

import (
	"net/http"

	registrationdomain "github.com/campbright/enroll/internal/registration/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateRegistration(c *gin.Context) {
	var req registrationdomain.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	registration, err := s.registrationSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, registration)
}

func (s *Server) GetRegistration(c *gin.Context) {
	registration, err := s.registrationSvc.GetByID(c.Request.Context(), c.Param("registration_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, registration)
}
