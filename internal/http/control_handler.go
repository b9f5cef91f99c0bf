package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sorting-hat/internal/discord"
	"sorting-hat/internal/domain"
	"sorting-hat/internal/logging"
	"sorting-hat/internal/repository"
	"sorting-hat/internal/service"
)

// BotControl is what the control surface needs from the bot lifecycle.
type BotControl interface {
	Start() error
	Stop() error
	Restart() error
	Ready() bool
	Running() bool
	Guilds() []service.Guild
	Guild(guildID string) (service.Guild, bool)
}

// ControlHandler mantiene dependencias para los endpoints de control.
type ControlHandler struct {
	logger  *zap.Logger
	bot     BotControl
	results repository.ResultRepository
	quiz    *service.SessionService
	roles   *service.RoleService
	ring    *logging.Ring
}

func NewControlHandler(
	logger *zap.Logger,
	bot BotControl,
	results repository.ResultRepository,
	quiz *service.SessionService,
	roles *service.RoleService,
	ring *logging.Ring,
) *ControlHandler {
	return &ControlHandler{
		logger:  logger,
		bot:     bot,
		results: results,
		quiz:    quiz,
		roles:   roles,
		ring:    ring,
	}
}

// Status maneja GET /status.
func (h *ControlHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"ready":           h.bot.Ready(),
		"running":         h.bot.Running(),
		"sorted_users":    h.results.Size(),
		"active_sessions": h.quiz.Count(),
		"guilds":          len(h.bot.Guilds()),
	})
}

// Logs maneja GET /logs.
func (h *ControlHandler) Logs(c *gin.Context) {
	lines := []string{}
	if h.ring != nil {
		lines = h.ring.Lines()
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "logs": lines})
}

// SortedUsers maneja GET /sorted-users.
func (h *ControlHandler) SortedUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "users": h.results.All()})
}

// Guilds maneja GET /guilds.
func (h *ControlHandler) Guilds(c *gin.Context) {
	type guildInfo struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	guilds := []guildInfo{}
	for _, g := range h.bot.Guilds() {
		guilds = append(guilds, guildInfo{ID: g.ID(), Name: g.Name()})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "guilds": guilds})
}

// Start maneja POST /start.
func (h *ControlHandler) Start(c *gin.Context) {
	h.lifecycle(c, "start", h.bot.Start)
}

// Stop maneja POST /stop.
func (h *ControlHandler) Stop(c *gin.Context) {
	h.lifecycle(c, "stop", h.bot.Stop)
}

// Restart maneja POST /restart.
func (h *ControlHandler) Restart(c *gin.Context) {
	h.lifecycle(c, "restart", h.bot.Restart)
}

func (h *ControlHandler) lifecycle(c *gin.Context, action string, fn func() error) {
	if err := fn(); err != nil {
		h.logger.Warn("lifecycle action failed", zap.String("action", action), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, discord.ErrAlreadyRunning) || errors.Is(err, discord.ErrNotRunning) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}
	h.logger.Info("lifecycle action", zap.String("action", action))
	c.JSON(http.StatusOK, gin.H{"success": true, "action": action})
}

// AssignHouse maneja POST /users/:id/assign-house.
func (h *ControlHandler) AssignHouse(c *gin.Context) {
	userID := c.Param("id")
	var req struct {
		GuildID string `json:"guild_id" binding:"required"`
		House   string `json:"house" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guild_id and house are required"})
		return
	}

	key, ok := domain.ParseHouseKey(req.House)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown house: " + req.House})
		return
	}
	house, _ := domain.HouseByKey(key)

	guild, ok := h.bot.Guild(req.GuildID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown guild"})
		return
	}

	if err := h.roles.EnsureAssigned(c.Request.Context(), guild, userID, house); err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown user in guild"})
			return
		}
		h.logger.Error("assign house failed",
			zap.String("user_id", userID), zap.String("house", string(key)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user_id": userID, "house": key})
}

// RemoveHouse maneja POST /users/:id/remove-house.
func (h *ControlHandler) RemoveHouse(c *gin.Context) {
	userID := c.Param("id")
	var req struct {
		GuildID string `json:"guild_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "guild_id is required"})
		return
	}

	guild, ok := h.bot.Guild(req.GuildID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown guild"})
		return
	}

	if err := h.roles.ClearAssignment(c.Request.Context(), guild, userID); err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown user in guild"})
			return
		}
		h.logger.Error("remove house failed", zap.String("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "user_id": userID})
}
