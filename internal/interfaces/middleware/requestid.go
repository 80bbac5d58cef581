package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/eskills-store/backend/pkg/constants"
	"github.com/eskills-store/backend/pkg/utils"
)

// RequestID tags every request with an X-Request-ID so storefront errors can
// be correlated with server logs. An ID supplied by the caller is kept.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(constants.HeaderXRequestID)
		if id == "" {
			id = utils.GenerateID()
		}
		c.Writer.Header().Set(constants.HeaderXRequestID, id)
		c.Set(constants.HeaderXRequestID, id)
		c.Next()
	}
}
