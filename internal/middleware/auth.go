package middleware

import (
	"crypto/subtle"
	"net/http"

	"rank-api/internal/response"
	"rank-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

const adminRealm = `Basic realm="rank-api admin"`

// AdminAuthMiddleware protects the admin routes with HTTP Basic credentials
func AdminAuthMiddleware(user, pass string) gin.HandlerFunc {
	return func(c *gin.Context) {
		gotUser, gotPass, ok := c.Request.BasicAuth()
		if !ok || user == "" || pass == "" || !credentialsMatch(gotUser, gotPass, user, pass) {
			logging.Warnf("Admin authentication failed from %s", c.ClientIP())
			c.Header("WWW-Authenticate", adminRealm)
			response.AbortErrorJSON(c, http.StatusUnauthorized, "Unauthorized")
			return
		}

		c.Set("admin_user", gotUser)
		c.Next()
	}
}

// both comparisons always run
func credentialsMatch(gotUser, gotPass, user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(gotUser), []byte(user))
	passOK := subtle.ConstantTimeCompare([]byte(gotPass), []byte(pass))
	return userOK&passOK == 1
}
