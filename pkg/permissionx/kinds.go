package permissionx

import (
	"fmt"
	"slices"
	"strings"
)

// Special identifies a permission that cannot be granted through the standard
// runtime prompt and instead needs a dedicated settings screen.
type Special int

// Special permission kinds, in chain priority order.
const (
	BackgroundLocation Special = iota + 1
	SystemAlertWindow
	WriteSettings
	ManageExternalStorage
)

// Well-known permission identifiers.
const (
	PermissionAccessFineLocation    = "android.permission.ACCESS_FINE_LOCATION"
	PermissionAccessCoarseLocation  = "android.permission.ACCESS_COARSE_LOCATION"
	PermissionBackgroundLocation    = "android.permission.ACCESS_BACKGROUND_LOCATION"
	PermissionSystemAlertWindow     = "android.permission.SYSTEM_ALERT_WINDOW"
	PermissionWriteSettings         = "android.permission.WRITE_SETTINGS"
	PermissionManageExternalStorage = "android.permission.MANAGE_EXTERNAL_STORAGE"
)

var specialOrder = [...]Special{
	BackgroundLocation,
	SystemAlertWindow,
	WriteSettings,
	ManageExternalStorage,
}

// SpecialKinds returns every special kind in the order the chain runs them.
func SpecialKinds() []Special {
	return slices.Clone(specialOrder[:])
}

func (s Special) String() string {
	switch s {
	case BackgroundLocation:
		return "background_location"
	case SystemAlertWindow:
		return "system_alert_window"
	case WriteSettings:
		return "write_settings"
	case ManageExternalStorage:
		return "manage_external_storage"
	default:
		return fmt.Sprintf("special(%d)", int(s))
	}
}

// Permission returns the identifier reported in results for this kind.
func (s Special) Permission() string {
	switch s {
	case BackgroundLocation:
		return PermissionBackgroundLocation
	case SystemAlertWindow:
		return PermissionSystemAlertWindow
	case WriteSettings:
		return PermissionWriteSettings
	case ManageExternalStorage:
		return PermissionManageExternalStorage
	default:
		return ""
	}
}

// SettingsTarget returns the settings screen that grants this kind.
func (s Special) SettingsTarget() SettingsTarget {
	switch s {
	case SystemAlertWindow:
		return SettingsOverlay
	case WriteSettings:
		return SettingsWriteSettings
	case ManageExternalStorage:
		return SettingsManageStorage
	default:
		return SettingsApp
	}
}

// MinSDK returns the API level from which s needs an explicit grant. Below it
// the permission is implicitly held. Zero means every level.
func (s Special) MinSDK() int {
	return specialVariants[s].minSDK
}

// Valid reports whether s is a known kind.
func (s Special) Valid() bool {
	return s >= BackgroundLocation && s <= ManageExternalStorage
}

// ParseSpecial resolves a kind from its name ("manage_external_storage") or
// its permission identifier. Names are matched case-insensitively.
func ParseSpecial(name string) (Special, error) {
	name = strings.TrimSpace(name)
	for _, s := range specialOrder {
		if strings.EqualFold(name, s.String()) || name == s.Permission() {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown special permission %q", name)
}

// specialFor reports the kind whose identifier is id.
func specialFor(id string) (Special, bool) {
	for _, s := range specialOrder {
		if s.Permission() == id {
			return s, true
		}
	}
	return 0, false
}
