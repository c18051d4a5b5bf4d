package lifecycle

import (
	"fmt"
	"time"

	"github.com/covert-ops/agency-comms/src/agency/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const TitleAgentKilled = "Agent Killed in Action"

// HandleAgentStatusChange runs the killed-in-action cascade. It must be
// called inside the transaction that persisted the status change, with
// prevStatus taken from the read that transaction performed before writing.
// Anything other than an actual transition into KilledInAction is a no-op,
// which is the sole guard against duplicate broadcasts on repeated patches.
func HandleAgentStatusChange(tx *gorm.DB, agentID, prevStatus, narrative string) error {
	var agent types.Agent
	if err := tx.First(&agent, "id = ?", agentID).Error; err != nil {
		return &IntegrityError{Entity: "agent", ID: agentID, Err: err}
	}
	if agent.Status != types.AgentKilledInAction || prevStatus == types.AgentKilledInAction {
		return nil
	}

	// Purge before broadcast: the notices created below are authored by the
	// dead agent and must survive the sweep.
	if err := tx.Where("recipient_id = ? OR author_id = ?", agent.ID, agent.ID).
		Delete(&types.Message{}).Error; err != nil {
		return err
	}

	var others []types.Agent
	if err := tx.Where("id <> ?", agent.ID).Find(&others).Error; err != nil {
		return err
	}

	if narrative == "" {
		narrative = "The circumstances are classified."
	}
	body := fmt.Sprintf("Agent %s has been killed in action. %s", agent.CodeName, narrative)
	authorID := agent.ID
	now := time.Now()
	for _, other := range others {
		msg := types.Message{
			ID:          uuid.NewString(),
			Title:       TitleAgentKilled,
			Body:        body,
			RecipientID: other.ID,
			AuthorID:    &authorID,
			CreatedAt:   now,
		}
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
	}
	return nil
}
