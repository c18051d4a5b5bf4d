package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/types"
)

func JWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		tok, err := jwt.Parse(h[7:], func(t *jwt.Token) (interface{}, error) { return secret, nil })
		if err != nil || !tok.Valid {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims := tok.Claims.(jwt.MapClaims)
		c.Set("agent_id", claims["sub"])
		c.Set("role", claims["role"])
		c.Next()
	}
}

// HandlerOnly gates operator mutations on the handler role, checked against
// the live record rather than the token so demotions take effect at once.
func HandlerOnly(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var agent types.Agent
		if err := db.First(&agent, "id = ?", c.GetString("agent_id")).Error; err != nil {
			c.JSON(http.StatusForbidden, gin.H{"err": "handler access required"})
			c.Abort()
			return
		}
		if agent.Role != types.RoleHandler {
			c.JSON(http.StatusForbidden, gin.H{"err": "handler access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func issueJWT(agentID, role string, secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"sub":  agentID,
		"role": role,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(12 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
