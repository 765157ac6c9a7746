package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/inkbooth/inkbooth/internal/auth"
	"github.com/inkbooth/inkbooth/internal/common"
)

const (
	RequestIDKey  = "request_id"
	AdminUserKey  = "admin_user"
	ClientInfoKey = "client_info"
)

// RequestID tags every request; the id is echoed in the X-Request-Id header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// Recovery converts panics into the standard error envelope instead of a
// closed connection.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic recovered: %v", r)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// AuthRequired guards the dashboard endpoints with the admin bearer token.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" || !strings.HasPrefix(h, "Bearer ") {
			common.Fail(c, http.StatusUnauthorized, 40100, "authorization token required")
			c.Abort()
			return
		}
		sub, err := auth.ParseJWT(strings.TrimPrefix(h, "Bearer "), secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(AdminUserKey, sub)
		c.Next()
	}
}
