package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"realtime-chat/internal/middleware"
	"realtime-chat/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func auditRecord(c *gin.Context, action telemetry.Action, level, userID string) telemetry.Record {
	if userID == "" {
		userID = c.GetString(middleware.UserIDKey)
	}
	return telemetry.Record{
		Action:    action,
		Level:     level,
		RequestID: requestIDFromContext(c),
		UserID:    userID,
		ClientIP:  c.ClientIP(),
	}
}
