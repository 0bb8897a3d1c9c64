package data

import (
	"sync"

	"github.com/stake-plus/sentinel/src/sentinel/types"
	"gorm.io/gorm"
)

// Settings are read once at boot. Sentinel has no admin surface that
// mutates them at runtime, so there is no refresh path; changing a
// setting means restarting the process.
var (
	settingsMu    sync.RWMutex
	settingsCache = map[string]string{}
)

// LoadSettings replaces the cache with the current settings table.
func LoadSettings(db *gorm.DB) error {
	var rows []types.Setting
	if err := db.Find(&rows).Error; err != nil {
		return err
	}

	cache := make(map[string]string, len(rows))
	for _, row := range rows {
		cache[row.Name] = row.Value
	}

	settingsMu.Lock()
	settingsCache = cache
	settingsMu.Unlock()
	return nil
}

// GetSetting returns the cached value for name, empty if unset.
func GetSetting(name string) string {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settingsCache[name]
}
