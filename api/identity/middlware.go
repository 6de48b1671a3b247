package identity

import (
	"net/http"
	"strings"

	"github.com/beka-birhanu/gridhunt-server/service/i"
	"github.com/gin-gonic/gin"
)

// ContextUserClaims is the key used to store user claims in the Gin context.
const ContextUserClaims = "userClaims"

// Authoriz rejects requests without a valid "Bearer <token>" Authorization
// header and attaches the decoded claims for downstream handlers.
func Authoriz(ts i.Tokenizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := ts.Decode(parts[1])
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(ContextUserClaims, claims)
		c.Next()
	}
}
