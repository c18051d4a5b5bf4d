package webserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/data"
	"github.com/covert-ops/agency-comms/src/agency/lifecycle"
	"github.com/covert-ops/agency-comms/src/agency/types"
)

type Missions struct {
	db        *gorm.DB
	rdb       *redis.Client
	sanitizer *bluemonday.Policy
}

func NewMissions(db *gorm.DB, rdb *redis.Client) Missions {
	return Missions{db: db, rdb: rdb, sanitizer: bluemonday.StrictPolicy()}
}

func (h Missions) Create(c *gin.Context) {
	var req struct {
		Name        string   `json:"name" binding:"required,min=2,max=128"`
		Description string   `json:"description" binding:"max=10000"`
		Objectives  string   `json:"objectives" binding:"max=10000"`
		Danger      string   `json:"danger" binding:"required,oneof=Low Medium High Critical"`
		Status      string   `json:"status" binding:"omitempty,oneof=InProgress Success Failure"`
		CountryID   string   `json:"countryId" binding:"required"`
		AgentIDs    []string `json:"agentIds" binding:"max=100"`
		StartDate   string   `json:"startDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	if req.Status == "" {
		req.Status = types.MissionInProgress
	}
	start := time.Now()
	if req.StartDate != "" {
		t, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"err": "startDate must be RFC3339"})
			return
		}
		start = t
	}

	var mission types.Mission

	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		var country types.Country
		if err := tx.First(&country, "id = ?", req.CountryID).Error; err != nil {
			return err
		}

		var agents []types.Agent
		if len(req.AgentIDs) > 0 {
			if err := tx.Where("id IN ?", req.AgentIDs).Find(&agents).Error; err != nil {
				return err
			}
			if len(agents) != len(req.AgentIDs) {
				return gorm.ErrRecordNotFound
			}
		}

		mission = types.Mission{
			ID:          uuid.NewString(),
			Name:        req.Name,
			Description: h.sanitizer.Sanitize(req.Description),
			Objectives:  h.sanitizer.Sanitize(req.Objectives),
			Danger:      req.Danger,
			Status:      req.Status,
			StartDate:   start,
			CountryID:   country.ID,
			Agents:      agents,
		}
		if err := tx.Create(&mission).Error; err != nil {
			return err
		}

		if err := lifecycle.ValidateMissionAgents(tx, &mission); err != nil {
			return err
		}
		if err := lifecycle.RecomputeCountryDanger(tx, mission.CountryID); err != nil {
			return err
		}
		if err := lifecycle.HandleMissionCreated(tx, mission.ID); err != nil {
			return err
		}
		// A mission opened directly in a terminal status still gets its
		// result and end date.
		return lifecycle.HandleMissionStatusChange(tx, mission.ID, "")
	})

	if txErr != nil {
		writeCommandError(c, txErr)
		return
	}

	if err := data.PublishEvent(context.Background(), h.rdb, map[string]interface{}{
		"kind":    "mission_created",
		"name":    mission.Name,
		"danger":  mission.Danger,
		"country": mission.CountryID,
		"time":    time.Now().Unix(),
	}); err != nil {
		log.Printf("Failed to publish mission_created event: %v", err)
	}

	c.JSON(http.StatusCreated, gin.H{"id": mission.ID})
}

// Update applies a partial patch. Membership validation, danger
// recomputation and the terminal-status lifecycle all run inside the patch
// transaction, against the status that transaction wrote.
func (h Missions) Update(c *gin.Context) {
	var req struct {
		Name          *string   `json:"name" binding:"omitempty,min=2,max=128"`
		Description   *string   `json:"description" binding:"omitempty,max=10000"`
		Objectives    *string   `json:"objectives" binding:"omitempty,max=10000"`
		Danger        *string   `json:"danger" binding:"omitempty,oneof=Low Medium High Critical"`
		Status        *string   `json:"status" binding:"omitempty,oneof=InProgress Success Failure"`
		AgentIDs      *[]string `json:"agentIds" binding:"omitempty,max=100"`
		ResultSummary string    `json:"resultSummary" binding:"max=10000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	id := c.Param("id")

	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		var mission types.Mission
		if err := tx.First(&mission, "id = ?", id).Error; err != nil {
			return err
		}

		if req.Status != nil {
			if err := lifecycle.ValidateStatusTransition(&mission, *req.Status); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Description != nil {
			updates["description"] = h.sanitizer.Sanitize(*req.Description)
		}
		if req.Objectives != nil {
			updates["objectives"] = h.sanitizer.Sanitize(*req.Objectives)
		}
		if req.Danger != nil {
			updates["danger"] = *req.Danger
		}
		if req.Status != nil {
			updates["status"] = *req.Status
		}
		if len(updates) > 0 {
			if err := tx.Model(&types.Mission{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}

		if req.AgentIDs != nil {
			var agents []types.Agent
			if len(*req.AgentIDs) > 0 {
				if err := tx.Where("id IN ?", *req.AgentIDs).Find(&agents).Error; err != nil {
					return err
				}
				if len(agents) != len(*req.AgentIDs) {
					return gorm.ErrRecordNotFound
				}
			}
			if err := tx.Model(&mission).Association("Agents").Replace(agents); err != nil {
				return err
			}
		}

		// Re-read so the rules below see what this transaction wrote.
		if err := tx.First(&mission, "id = ?", id).Error; err != nil {
			return err
		}

		if err := lifecycle.ValidateMissionAgents(tx, &mission); err != nil {
			return err
		}
		if err := lifecycle.RecomputeCountryDanger(tx, mission.CountryID); err != nil {
			return err
		}
		return lifecycle.HandleMissionStatusChange(tx, mission.ID, req.ResultSummary)
	})

	if txErr != nil {
		writeCommandError(c, txErr)
		return
	}

	var mission types.Mission
	err := h.db.Preload("Country").Preload("Agents").Preload("Result").
		First(&mission, "id = ?", id).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, mission)
}

func (h Missions) List(c *gin.Context) {
	q := h.db.Model(&types.Mission{})
	if country := c.Query("country"); country != "" {
		q = q.Where("country_id = ?", country)
	}
	if c.Query("active") == "true" {
		q = q.Where("status NOT IN ?", []string{types.MissionSuccess, types.MissionFailure})
	}

	var missions []types.Mission
	if err := q.Order("start_date desc").Find(&missions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, missions)
}

func (h Missions) Get(c *gin.Context) {
	var mission types.Mission
	err := h.db.Preload("Country").Preload("Agents").Preload("Result").
		First(&mission, "id = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "mission not found"})
		return
	}
	c.JSON(http.StatusOK, mission)
}
