package lifecycle

import (
	"github.com/covert-ops/agency-comms/src/agency/types"
	"gorm.io/gorm"
)

// MaxActiveDanger returns the highest danger level among missions whose
// status is not terminal, or Low when none are active.
func MaxActiveDanger(missions []types.Mission) string {
	level := types.DangerLow
	for _, m := range missions {
		if types.MissionTerminal(m.Status) {
			continue
		}
		if types.DangerRank(m.Danger) > types.DangerRank(level) {
			level = m.Danger
		}
	}
	return level
}

// RecomputeCountryDanger rewrites the country's persisted danger level from
// its current active mission set. Idempotent. Must run after mission
// creation, a danger edit, and any status change; an empty countryID (the
// triggering mission carried no country) is a no-op.
func RecomputeCountryDanger(tx *gorm.DB, countryID string) error {
	if countryID == "" {
		return nil
	}
	var missions []types.Mission
	if err := tx.Where("country_id = ?", countryID).Find(&missions).Error; err != nil {
		return err
	}
	return tx.Model(&types.Country{}).Where("id = ?", countryID).
		Update("danger_level", MaxActiveDanger(missions)).Error
}
