package webserver

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/types"
)

type Auth struct {
	db        *gorm.DB
	jwtSecret []byte
}

func NewAuth(db *gorm.DB, secret []byte) Auth {
	return Auth{db: db, jwtSecret: secret}
}

func (a Auth) Login(c *gin.Context) {
	var req struct {
		CodeName string `json:"codeName" binding:"required,min=2,max=64"`
		Password string `json:"password" binding:"required,min=8,max=128"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	var agent types.Agent
	if err := a.db.First(&agent, "code_name = ?", req.CodeName).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad credentials"})
		return
	}

	// Dead agents keep their record but lose access.
	if agent.Status == types.AgentKilledInAction {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad credentials"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(agent.PasswordHash), []byte(req.Password)) != nil {
		log.Printf("Failed login for %s from IP %s", req.CodeName, c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad credentials"})
		return
	}

	token, err := issueJWT(agent.ID, agent.Role, a.jwtSecret)
	if err != nil {
		log.Printf("Failed to issue JWT for %s: %v", req.CodeName, err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
