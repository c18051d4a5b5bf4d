package webserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/lifecycle"
	"github.com/covert-ops/agency-comms/src/agency/types"
)

type Countries struct{ db *gorm.DB }

func NewCountries(db *gorm.DB) Countries { return Countries{db: db} }

func (h Countries) Create(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required,min=2,max=64"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	country := types.Country{
		ID:          uuid.NewString(),
		Name:        req.Name,
		DangerLevel: types.DangerLow,
	}
	if err := h.db.Create(&country).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"err": "country already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, country)
}

func (h Countries) List(c *gin.Context) {
	var countries []types.Country
	if err := h.db.Order("name asc").Find(&countries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"err": err.Error()})
		return
	}
	c.JSON(http.StatusOK, countries)
}

// Get returns the country with a live danger value computed from its
// mission set alongside the persisted field, for callers that cannot
// tolerate a stale read.
func (h Countries) Get(c *gin.Context) {
	var country types.Country
	err := h.db.Preload("Missions").Preload("Agents").
		First(&country, "id = ?", c.Param("id")).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"err": "country not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"country":        country,
		"computedDanger": lifecycle.MaxActiveDanger(country.Missions),
	})
}
