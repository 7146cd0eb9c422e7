package httpapi

import (
	"errors"
	"net/http"

	"comms-gateway/internal/comms"
	"comms-gateway/pkg/logger"

	"github.com/gin-gonic/gin"
)

// writeError maps a service error to {detail, kind}. sidField names the body key
// that carries the provider correlation id when the provider already acted.
func writeError(c *gin.Context, err error, sidField string) {
	log := logger.FromGin(c)

	var e *comms.Error
	if !errors.As(err, &e) {
		log.Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	body := gin.H{"detail": e.Error(), "kind": e.Kind}
	status := http.StatusInternalServerError
	switch e.Kind {
	case comms.KindValidation:
		status = http.StatusUnprocessableEntity
		log.Info("request rejected", "op", e.Op, "err", e.Err)
	case comms.KindCapacity:
		status = http.StatusTooManyRequests
		log.Info("request throttled", "op", e.Op)
	case comms.KindProvider:
		log.Error("provider failure", "op", e.Op, "err", e.Err)
	case comms.KindPersistence:
		if e.SID != "" && sidField != "" {
			body[sidField] = e.SID
		}
		log.Error("persistence failure", "op", e.Op, "sid", e.SID, "err", e.Err)
	}
	c.AbortWithStatusJSON(status, body)
}

func writeBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"detail": err.Error(), "kind": comms.KindValidation})
}
