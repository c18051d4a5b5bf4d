package data

import (
	"sync"

	"github.com/covert-ops/agency-comms/src/agency/types"
	"gorm.io/gorm"
)

var (
	settings   = map[string]string{}
	settingsMu sync.RWMutex
)

// LoadSettings pulls the settings table into memory. Called at boot; safe
// to call again to pick up changes.
func LoadSettings(db *gorm.DB) error {
	var rows []types.Setting
	if err := db.Find(&rows).Error; err != nil {
		return err
	}

	settingsMu.Lock()
	defer settingsMu.Unlock()
	settings = make(map[string]string, len(rows))
	for _, s := range rows {
		settings[s.Name] = s.Value
	}
	return nil
}

// GetSetting returns the cached value for name, or the empty string when
// the row does not exist.
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings[name]
}
