package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realtime-chat/internal/telemetry"
)

// PresenceReporter exposes the live presence snapshot.
type PresenceReporter interface {
	OnlineUserIDs() []string
	ConnectionCount() int
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, presence PresenceReporter, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"message": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), auditRecord(c, telemetry.ActionAuditTest, "INFO", ""))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/presence", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"onlineUsers": presence.OnlineUserIDs(),
			"connections": presence.ConnectionCount(),
		})
	})
}
