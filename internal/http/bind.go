package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// bindJSON decodifica y valida el body; si falla responde 400 y devuelve false.
func bindJSON(c *gin.Context, logger *zap.Logger, dst any, logMsg string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Warn(logMsg, zap.Error(err), zap.String("route", c.FullPath()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return false
	}
	return true
}
