package lifecycle

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/types"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&types.Country{},
		&types.Agent{},
		&types.Mission{},
		&types.MissionResult{},
		&types.Message{},
	))
	return db
}

func mkCountry(t *testing.T, db *gorm.DB, name string) types.Country {
	t.Helper()
	c := types.Country{ID: uuid.NewString(), Name: name, DangerLevel: types.DangerLow}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func mkAgent(t *testing.T, db *gorm.DB, codeName string, countryID *string) types.Agent {
	t.Helper()
	a := types.Agent{
		ID:        uuid.NewString(),
		CodeName:  codeName,
		Status:    types.AgentAvailable,
		Role:      types.RoleAgent,
		CountryID: countryID,
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func mkMission(t *testing.T, db *gorm.DB, name, danger, status, countryID string, agents ...types.Agent) types.Mission {
	t.Helper()
	m := types.Mission{
		ID:        uuid.NewString(),
		Name:      name,
		Danger:    danger,
		Status:    status,
		CountryID: countryID,
		Agents:    agents,
	}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func countMessages(t *testing.T, db *gorm.DB, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&types.Message{}).Where(query, args...).Count(&n).Error)
	return n
}
