package lifecycle

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/types"
)

func TestMissionCreatedNotices(t *testing.T) {
	db := openTestDB(t)
	france := mkCountry(t, db, "France")
	spain := mkCountry(t, db, "Spain")

	p1 := mkAgent(t, db, "Falcon", &france.ID)
	p2 := mkAgent(t, db, "Viper", &france.ID)
	bystander1 := mkAgent(t, db, "Owl", &france.ID)
	bystander2 := mkAgent(t, db, "Crow", &france.ID)
	mkAgent(t, db, "Toro", &spain.ID) // wrong country, never notified

	m := mkMission(t, db, "Op Seine", types.DangerHigh, types.MissionInProgress, france.ID, p1, p2)
	require.NoError(t, HandleMissionCreated(db, m.ID))

	var notices []types.Message
	require.NoError(t, db.Where("title = ?", TitleMissionCreated).Find(&notices).Error)
	require.Len(t, notices, 2)

	recipients := map[string]bool{}
	for _, n := range notices {
		assert.Nil(t, n.AuthorID, "mission notices are system-generated")
		assert.Contains(t, n.Body, "Op Seine")
		assert.Contains(t, n.Body, types.DangerHigh)
		recipients[n.RecipientID] = true
	}
	assert.True(t, recipients[bystander1.ID])
	assert.True(t, recipients[bystander2.ID])
	assert.False(t, recipients[p1.ID])
	assert.False(t, recipients[p2.ID])
}

func TestMissionCreatedWithoutCountryIsNoop(t *testing.T) {
	db := openTestDB(t)
	mkAgent(t, db, "Owl", nil)

	m := types.Mission{
		ID:     uuid.NewString(),
		Name:   "Orphan Op",
		Danger: types.DangerLow,
		Status: types.MissionInProgress,
	}
	require.NoError(t, db.Create(&m).Error)

	require.NoError(t, HandleMissionCreated(db, m.ID))
	assert.EqualValues(t, 0, countMessages(t, db, "1 = 1"))
}

func TestMissionCreatedMissingMissionIsIntegrityFault(t *testing.T) {
	db := openTestDB(t)
	var integrity *IntegrityError
	assert.ErrorAs(t, HandleMissionCreated(db, uuid.NewString()), &integrity)
}

func TestValidateStatusTransition(t *testing.T) {
	m := &types.Mission{Name: "Op Seine", Status: types.MissionSuccess}

	var closed *MissionClosedError
	require.ErrorAs(t, ValidateStatusTransition(m, types.MissionFailure), &closed)
	assert.Equal(t, "Op Seine", closed.Name)
	require.ErrorAs(t, ValidateStatusTransition(m, types.MissionInProgress), &closed)

	// Same terminal status and edits on open missions pass.
	require.NoError(t, ValidateStatusTransition(m, types.MissionSuccess))
	m.Status = types.MissionInProgress
	require.NoError(t, ValidateStatusTransition(m, types.MissionFailure))
}

func terminate(t *testing.T, db *gorm.DB, missionID, status, summaryOverride string) {
	t.Helper()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&types.Mission{}).Where("id = ?", missionID).
			Update("status", status).Error; err != nil {
			return err
		}
		return HandleMissionStatusChange(tx, missionID, summaryOverride)
	}))
}

func TestMissionSuccessCreatesSingleResult(t *testing.T) {
	db := openTestDB(t)
	france := mkCountry(t, db, "France")
	agent := mkAgent(t, db, "Falcon", &france.ID)
	m := mkMission(t, db, "Op Seine", types.DangerHigh, types.MissionInProgress, france.ID, agent)

	terminate(t, db, m.ID, types.MissionSuccess, "")

	var results []types.MissionResult
	require.NoError(t, db.Where("mission_id = ?", m.ID).Find(&results).Error)
	require.Len(t, results, 1)
	assert.Equal(t, types.MissionSuccess, results[0].Status)
	assert.Contains(t, results[0].Summary, "Op Seine")
	assert.Contains(t, results[0].Summary, "France")
	assert.Contains(t, results[0].Summary, "successfully")
	assert.Contains(t, results[0].Summary, "1 agents")

	var got types.Mission
	require.NoError(t, db.First(&got, "id = ?", m.ID).Error)
	require.NotNil(t, got.EndDate)
	firstEnd := *got.EndDate

	// Re-patching to Success again creates nothing and keeps the end date.
	terminate(t, db, m.ID, types.MissionSuccess, "")
	require.NoError(t, db.Where("mission_id = ?", m.ID).Find(&results).Error)
	assert.Len(t, results, 1)
	require.NoError(t, db.First(&got, "id = ?", m.ID).Error)
	assert.Equal(t, firstEnd.Unix(), got.EndDate.Unix())
}

func TestMissionFailureSummaryWording(t *testing.T) {
	db := openTestDB(t)
	france := mkCountry(t, db, "France")
	m := mkMission(t, db, "Op Loire", types.DangerMedium, types.MissionInProgress, france.ID)

	terminate(t, db, m.ID, types.MissionFailure, "")

	var result types.MissionResult
	require.NoError(t, db.First(&result, "mission_id = ?", m.ID).Error)
	assert.Equal(t, types.MissionFailure, result.Status)
	assert.Contains(t, result.Summary, "failed")
	assert.Contains(t, result.Summary, "0 agents")
}

func TestMissionResultSummaryOverride(t *testing.T) {
	db := openTestDB(t)
	france := mkCountry(t, db, "France")
	m := mkMission(t, db, "Op Seine", types.DangerHigh, types.MissionInProgress, france.ID)

	terminate(t, db, m.ID, types.MissionSuccess, "")

	// A later patch with an explicit summary updates the existing result
	// without creating a second one.
	terminate(t, db, m.ID, types.MissionSuccess, "Handler debrief: assets recovered.")

	var results []types.MissionResult
	require.NoError(t, db.Where("mission_id = ?", m.ID).Find(&results).Error)
	require.Len(t, results, 1)
	assert.Equal(t, "Handler debrief: assets recovered.", results[0].Summary)
}

func TestMissionResultOverrideAtCreation(t *testing.T) {
	db := openTestDB(t)
	france := mkCountry(t, db, "France")
	m := mkMission(t, db, "Op Rhone", types.DangerLow, types.MissionInProgress, france.ID)

	terminate(t, db, m.ID, types.MissionFailure, "Cover blown on day one.")

	var result types.MissionResult
	require.NoError(t, db.First(&result, "mission_id = ?", m.ID).Error)
	assert.Equal(t, "Cover blown on day one.", result.Summary)
}

func TestMissionNonTerminalStatusDoesNothing(t *testing.T) {
	db := openTestDB(t)
	france := mkCountry(t, db, "France")
	m := mkMission(t, db, "Op Marne", types.DangerLow, types.MissionInProgress, france.ID)

	require.NoError(t, HandleMissionStatusChange(db, m.ID, ""))

	var n int64
	require.NoError(t, db.Model(&types.MissionResult{}).Count(&n).Error)
	assert.EqualValues(t, 0, n)

	var got types.Mission
	require.NoError(t, db.First(&got, "id = ?", m.ID).Error)
	assert.Nil(t, got.EndDate)
}

func TestMissionResultFallbackLocation(t *testing.T) {
	db := openTestDB(t)

	m := types.Mission{
		ID:     uuid.NewString(),
		Name:   "Orphan Op",
		Danger: types.DangerLow,
		Status: types.MissionInProgress,
	}
	require.NoError(t, db.Create(&m).Error)

	terminate(t, db, m.ID, types.MissionSuccess, "")

	var result types.MissionResult
	require.NoError(t, db.First(&result, "mission_id = ?", m.ID).Error)
	assert.Contains(t, result.Summary, "an undisclosed location")
}
