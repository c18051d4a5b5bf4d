package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/types"
)

type Messages struct{ db *gorm.DB }

func NewMessages(db *gorm.DB) Messages { return Messages{db: db} }

// List returns the authenticated agent's inbox, oldest first.
func (h Messages) List(c *gin.Context) {
	var msgs []types.Message
	err := h.db.Where("recipient_id = ?", c.GetString("agent_id")).
		Order("created_at asc").Find(&msgs).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// Delete removes a message from the caller's own inbox only.
func (h Messages) Delete(c *gin.Context) {
	var msg types.Message
	if err := h.db.First(&msg, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "message not found"})
		return
	}
	if msg.RecipientID != c.GetString("agent_id") {
		c.JSON(http.StatusForbidden, gin.H{"err": "not your message"})
		return
	}
	if err := h.db.Delete(&msg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
