package webserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/data"
	"github.com/covert-ops/agency-comms/src/agency/lifecycle"
	"github.com/covert-ops/agency-comms/src/agency/types"
)

type Agents struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewAgents(db *gorm.DB, rdb *redis.Client) Agents {
	return Agents{db: db, rdb: rdb}
}

func (h Agents) Create(c *gin.Context) {
	var req struct {
		CodeName  string `json:"codeName" binding:"required,min=2,max=64"`
		Password  string `json:"password" binding:"required,min=8,max=128"`
		Status    string `json:"status" binding:"omitempty,oneof=Available OnMission Retired KilledInAction"`
		Role      string `json:"role" binding:"omitempty,oneof=agent handler"`
		CountryID string `json:"countryId"`
		MentorID  string `json:"mentorId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	if req.Status == "" {
		req.Status = types.AgentAvailable
	}
	if req.Role == "" {
		req.Role = types.RoleAgent
	}

	agent := types.Agent{
		ID:       uuid.NewString(),
		CodeName: req.CodeName,
		Status:   req.Status,
		Role:     req.Role,
	}

	if req.CountryID != "" {
		var country types.Country
		if err := h.db.First(&country, "id = ?", req.CountryID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"err": "country not found"})
			return
		}
		agent.CountryID = &req.CountryID
	}
	if req.MentorID != "" {
		var mentor types.Agent
		if err := h.db.First(&mentor, "id = ?", req.MentorID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"err": "mentor not found"})
			return
		}
		agent.MentorID = &req.MentorID
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	agent.PasswordHash = string(hash)

	// Let the unique index on code_name arbitrate; a pre-read would race
	// with concurrent creates.
	if err := h.db.Create(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"err": "code name already in use"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, agent)
}

func (h Agents) List(c *gin.Context) {
	q := h.db.Model(&types.Agent{})
	if country := c.Query("country"); country != "" {
		q = q.Where("country_id = ?", country)
	}
	if status := c.Query("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var agents []types.Agent
	if err := q.Order("code_name asc").Find(&agents).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agents)
}

func (h Agents) Get(c *gin.Context) {
	var agent types.Agent
	err := h.db.Preload("Country").Preload("Mentor").Preload("Missions").
		First(&agent, "id = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "agent not found"})
		return
	}
	c.JSON(http.StatusOK, agent)
}

// Update applies a partial patch to an agent. Status changes route through
// the lifecycle engine inside the same transaction that writes the new
// status, so the killed-in-action cascade sees the pre-write status.
func (h Agents) Update(c *gin.Context) {
	var req struct {
		Status    *string `json:"status" binding:"omitempty,oneof=Available OnMission Retired KilledInAction"`
		Narrative string  `json:"narrative" binding:"max=1000"`
		CountryID *string `json:"countryId"`
		MentorID  *string `json:"mentorId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	id := c.Param("id")
	var prevStatus, newStatus, codeName string

	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		var agent types.Agent
		if err := tx.First(&agent, "id = ?", id).Error; err != nil {
			return err
		}
		prevStatus = agent.Status
		countryChanged := false

		updates := map[string]interface{}{}
		if req.Status != nil {
			updates["status"] = *req.Status
			agent.Status = *req.Status
		}
		if req.CountryID != nil {
			if *req.CountryID == "" {
				updates["country_id"] = nil
				agent.CountryID = nil
			} else {
				var country types.Country
				if err := tx.First(&country, "id = ?", *req.CountryID).Error; err != nil {
					return err
				}
				updates["country_id"] = *req.CountryID
				agent.CountryID = req.CountryID
			}
			countryChanged = true
		}
		if req.MentorID != nil {
			if *req.MentorID == "" {
				updates["mentor_id"] = nil
			} else {
				var mentor types.Agent
				if err := tx.First(&mentor, "id = ?", *req.MentorID).Error; err != nil {
					return err
				}
				updates["mentor_id"] = *req.MentorID
			}
		}

		if len(updates) > 0 {
			if err := tx.Model(&types.Agent{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		// Moving an agent while missions still reference it can break the
		// membership invariant, so re-validate every mission it is on.
		if countryChanged {
			var missions []types.Mission
			if err := tx.Model(&agent).Association("Missions").Find(&missions); err != nil {
				return err
			}
			for i := range missions {
				if err := lifecycle.ValidateMissionAgents(tx, &missions[i]); err != nil {
					return err
				}
			}
		}

		if err := lifecycle.HandleAgentStatusChange(tx, agent.ID, prevStatus, req.Narrative); err != nil {
			return err
		}

		newStatus = agent.Status
		codeName = agent.CodeName
		return nil
	})

	if txErr != nil {
		writeCommandError(c, txErr)
		return
	}

	if prevStatus != types.AgentKilledInAction && newStatus == types.AgentKilledInAction {
		if err := data.PublishEvent(context.Background(), h.rdb, map[string]interface{}{
			"kind":     "agent_killed",
			"codeName": codeName,
			"time":     time.Now().Unix(),
		}); err != nil {
			log.Printf("Failed to publish agent_killed event: %v", err)
		}
	}

	var agent types.Agent
	if err := h.db.Preload("Country").First(&agent, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (h Agents) Inbox(c *gin.Context) {
	id := c.Param("id")
	if c.GetString("agent_id") != id {
		var caller types.Agent
		if err := h.db.First(&caller, "id = ?", c.GetString("agent_id")).Error; err != nil || caller.Role != types.RoleHandler {
			c.JSON(http.StatusForbidden, gin.H{"err": "not authorized to read this inbox"})
			return
		}
	}

	var msgs []types.Message
	if err := h.db.Where("recipient_id = ?", id).Order("created_at asc").Find(&msgs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// writeCommandError maps engine errors onto the response taxonomy: domain
// validation failures are client-correctable, integrity faults are not.
func writeCommandError(c *gin.Context, err error) {
	var membership *lifecycle.MembershipError
	var closed *lifecycle.MissionClosedError
	var integrity *lifecycle.IntegrityError
	switch {
	case errors.As(err, &membership):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"err": membership.Error()})
	case errors.As(err, &closed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"err": closed.Error()})
	case errors.As(err, &integrity):
		log.Printf("INTEGRITY FAULT: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"err": "internal storage inconsistency"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"err": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
	}
}
