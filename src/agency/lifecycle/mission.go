package lifecycle

import (
	"fmt"
	"time"

	"github.com/covert-ops/agency-comms/src/agency/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const TitleMissionCreated = "New Mission Created"

// ValidateStatusTransition rejects status edits on a mission that has
// already terminated. Re-asserting the same terminal status is allowed:
// idempotent re-patches carry result summary updates.
func ValidateStatusTransition(mission *types.Mission, next string) error {
	if types.MissionTerminal(mission.Status) && next != mission.Status {
		return &MissionClosedError{Name: mission.Name, Status: mission.Status}
	}
	return nil
}

// HandleMissionCreated notifies every agent infiltrated in the mission's
// country that is not among the initial participants. A mission without a
// country produces no notices.
func HandleMissionCreated(tx *gorm.DB, missionID string) error {
	var mission types.Mission
	if err := tx.Preload("Agents").First(&mission, "id = ?", missionID).Error; err != nil {
		return &IntegrityError{Entity: "mission", ID: missionID, Err: err}
	}
	if mission.CountryID == "" {
		return nil
	}

	participants := make(map[string]bool, len(mission.Agents))
	for _, a := range mission.Agents {
		participants[a.ID] = true
	}

	var inCountry []types.Agent
	if err := tx.Where("country_id = ?", mission.CountryID).Find(&inCountry).Error; err != nil {
		return err
	}

	body := fmt.Sprintf("Mission %s (danger level %s) has been created. Objectives: %s",
		mission.Name, mission.Danger, mission.Objectives)
	now := time.Now()
	for _, a := range inCountry {
		if participants[a.ID] {
			continue
		}
		// AuthorID stays nil: system-generated notice.
		msg := types.Message{
			ID:          uuid.NewString(),
			Title:       TitleMissionCreated,
			Body:        body,
			RecipientID: a.ID,
			CreatedAt:   now,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
	}
	return nil
}

// HandleMissionStatusChange closes out a mission that has reached a
// terminal status: stamps the end date on the first transition and keeps
// the single result record. A mission that is already terminal with an
// existing result creates nothing further; an explicit summaryOverride
// still updates the existing result.
func HandleMissionStatusChange(tx *gorm.DB, missionID, summaryOverride string) error {
	var mission types.Mission
	err := tx.Preload("Agents").Preload("Country").Preload("Result").
		First(&mission, "id = ?", missionID).Error
	if err != nil {
		return &IntegrityError{Entity: "mission", ID: missionID, Err: err}
	}
	if !types.MissionTerminal(mission.Status) {
		return nil
	}

	if mission.EndDate == nil {
		now := time.Now()
		if err := tx.Model(&types.Mission{}).Where("id = ?", mission.ID).
			Update("end_date", &now).Error; err != nil {
			return err
		}
	}

	if mission.Result != nil {
		if summaryOverride == "" {
			return nil
		}
		return tx.Model(mission.Result).Updates(map[string]interface{}{
			"status":  mission.Status,
			"summary": summaryOverride,
		}).Error
	}

	summary := summaryOverride
	if summary == "" {
		summary = resultSummary(&mission)
	}
	result := types.MissionResult{
		ID:        uuid.NewString(),
		MissionID: mission.ID,
		Status:    mission.Status,
		Summary:   summary,
	}
	return tx.Create(&result).Error
}

func resultSummary(m *types.Mission) string {
	where := "an undisclosed location"
	if m.Country != nil {
		where = m.Country.Name
	}
	if m.Status == types.MissionSuccess {
		return fmt.Sprintf("Mission %s in %s was completed successfully. Danger level %s, %d agents deployed.",
			m.Name, where, m.Danger, len(m.Agents))
	}
	return fmt.Sprintf("Mission %s in %s has failed. Danger level %s, %d agents deployed.",
		m.Name, where, m.Danger, len(m.Agents))
}
