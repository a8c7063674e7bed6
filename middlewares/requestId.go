package middlewares

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mmdatafocus/brokerage_backend/utils"
)

const RequestIdHeader = "X-Request-Id"

// RequestIdMiddleware attaches a correlation id to the request context and
// echoes it back. The caller's X-Request-Id is reused when present.
func RequestIdMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := strings.TrimSpace(c.GetHeader(RequestIdHeader))
		if cid == "" || len(cid) > 128 {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Header(RequestIdHeader, cid)
		c.Next()
	}
}
