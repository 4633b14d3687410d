package server

import (
	"net/http"

	paymentdomain "github.com/campbright/enroll/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateCheckoutSession(c *gin.Context) {
	session, err := s.paymentSvc.CreateCheckoutSession(c.Request.Context(), c.Param("registration_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}

type mobileMoneyRequest struct {
	Phone string `json:"phone"`
}

func (s *Server) ProcessMobileMoney(c *gin.Context) {
	var req mobileMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	registration, err := s.paymentSvc.ProcessMobileMoney(c.Request.Context(), c.Param("registration_id"), req.Phone)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, registration)
}

func (s *Server) VerifyPayment(c *gin.Context) {
	status, err := s.paymentSvc.PaymentStatus(c.Request.Context(), c.Param("registration_id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) ManualOverride(c *gin.Context) {
	var req paymentdomain.ManualOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.PaymentStatus == nil && req.PaymentID == nil && req.PaymentMethod == nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	updated, err := s.paymentSvc.ManualOverride(c.Request.Context(), c.Param("registration_id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}
