package lifecycle

import (
	"github.com/covert-ops/agency-comms/src/agency/types"
	"gorm.io/gorm"
)

// ValidateMissionAgents enforces the membership invariant: every agent
// attached to the mission must have its infiltration country equal to the
// mission's country. Called after every operation that touches a mission's
// agent set, and re-run on every mutating mission command.
func ValidateMissionAgents(tx *gorm.DB, mission *types.Mission) error {
	var agents []types.Agent
	if err := tx.Model(mission).Association("Agents").Find(&agents); err != nil {
		return err
	}
	for _, a := range agents {
		if a.CountryID == nil || *a.CountryID != mission.CountryID {
			return &MembershipError{CodeName: a.CodeName}
		}
	}
	return nil
}
