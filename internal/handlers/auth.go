package handlers

import (
	"net/http"
	"time"

	"github.com/campuslink/backend/internal/auth"
	"github.com/campuslink/backend/internal/dto"
	"github.com/campuslink/backend/internal/util"
	"github.com/gin-gonic/gin"
)

type authResponse struct {
	User      *dto.UserResponse `json:"user"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func toAuthResponse(resp *auth.AuthResponse) authResponse {
	return authResponse{
		User:      dto.ToUserResponse(&resp.User),
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	}
}

// Register creates an account
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if !util.BindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAuthResponse(resp))
}

// Login exchanges email and password for a bearer token
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if !util.BindJSON(c, &req) {
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		util.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(resp))
}
