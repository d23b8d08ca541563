package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/djhunter67/study-site/internal/services"
	"github.com/djhunter67/study-site/pkg/errors"
	"github.com/djhunter67/study-site/pkg/response"
)

// RegistrationHandler exposes the sign-up and confirmation endpoints.
type RegistrationHandler struct {
	service *services.RegistrationService
}

func NewRegistrationHandler(service *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

type registerRequest struct {
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" form:"first_name" validate:"max=128"`
	LastName  string `json:"last_name" form:"last_name" validate:"max=128"`
}

type resendRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

// POST /register
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindRequest(c, &req) {
		return
	}

	user, err := h.service.Register(requestContext(c), services.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"is_active":  user.IsActive,
	})
}

// GET /register/confirm?token=...
func (h *RegistrationHandler) Confirm(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, errors.NewBadRequest("token query parameter is required"))
		return
	}

	user, err := h.service.Confirm(requestContext(c), token)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"id":        user.ID,
		"email":     user.Email,
		"is_active": user.IsActive,
	})
}

// POST /register/resend
func (h *RegistrationHandler) Resend(c *gin.Context) {
	var req resendRequest
	if !bindRequest(c, &req) {
		return
	}

	if err := h.service.ResendConfirmation(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	// Always 202 so the endpoint does not reveal which emails exist.
	response.Success(c, http.StatusAccepted, gin.H{"status": "accepted"})
}
