package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"sorting-hat/internal/service"
)

// AuthHandler issues admin tokens for the control surface.
type AuthHandler struct {
	logger            *zap.Logger
	jwtSvc            *service.JWTService
	adminPasswordHash string
}

func NewAuthHandler(logger *zap.Logger, jwtSvc *service.JWTService, adminPasswordHash string) *AuthHandler {
	return &AuthHandler{
		logger:            logger,
		jwtSvc:            jwtSvc,
		adminPasswordHash: adminPasswordHash,
	}
}

// Login maneja POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if h.adminPasswordHash == "" || !h.jwtSvc.Enabled() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "admin auth not configured"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.adminPasswordHash), []byte(req.Password)); err != nil {
		h.logger.Warn("admin login rejected", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	pair, err := h.jwtSvc.GeneratePair()
	if err != nil {
		h.logger.Error("generate token pair failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue tokens"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tokens": pair})
}

// Refresh maneja POST /auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	pair, err := h.jwtSvc.RefreshPair(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tokens": pair})
}
