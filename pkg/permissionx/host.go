package permissionx

// GrantResult is the outcome of one permission in an OS-level request.
type GrantResult struct {
	Granted bool
	// MayAskAgain is false when the user denied with "don't ask again".
	// It is meaningless when Granted is true.
	MayAskAgain bool
}

// SettingsTarget selects the system settings screen to navigate to.
type SettingsTarget int

const (
	// SettingsApp is the application details screen.
	SettingsApp SettingsTarget = iota
	// SettingsOverlay is the "display over other apps" screen.
	SettingsOverlay
	// SettingsWriteSettings is the "modify system settings" screen.
	SettingsWriteSettings
	// SettingsManageStorage is the "all files access" screen.
	SettingsManageStorage
)

func (t SettingsTarget) String() string {
	switch t {
	case SettingsOverlay:
		return "overlay"
	case SettingsWriteSettings:
		return "write_settings"
	case SettingsManageStorage:
		return "manage_storage"
	default:
		return "app"
	}
}

// Probe answers whether a capability is currently granted.
// Implementations should return false when the answer cannot be determined.
type Probe interface {
	IsGranted(permission string) bool
	CanDrawOverlays() bool
	CanWriteSystemSettings() bool
	IsExternalStorageManager() bool
}

// Broker performs the asynchronous parts of a request: the OS permission
// prompt and navigation to settings screens. Each done callback must be
// invoked exactly once, on the same logical thread that drives the request.
type Broker interface {
	// RequestPermissions shows the OS prompt for ids and reports the outcome
	// of each one.
	RequestPermissions(ids []string, done func(map[string]GrantResult))

	// OpenSettings navigates to target and calls done when the user returns.
	OpenSettings(target SettingsTarget, done func())
}

// Platform describes the version gates of the hosting OS and application.
// A zero field means the value is unknown and the gate is treated as met.
type Platform struct {
	// SDKVersion is the OS API level.
	SDKVersion int
	// TargetSDKVersion is the API level the application targets.
	TargetSDKVersion int
}

// API levels at which permission models change.
const (
	SDKMarshmallow = 23
	SDKR           = 30
)

// OSAtLeast reports whether the OS API level meets level, regardless of the
// target SDK.
func (p Platform) OSAtLeast(level int) bool {
	return p.SDKVersion == 0 || p.SDKVersion >= level
}

// AtLeast reports whether both the OS and the target SDK meet level.
func (p Platform) AtLeast(level int) bool {
	if p.SDKVersion != 0 && p.SDKVersion < level {
		return false
	}
	if p.TargetSDKVersion != 0 && p.TargetSDKVersion < level {
		return false
	}
	return true
}

// Host bundles the collaborators a request runs against.
type Host struct {
	Probe    Probe
	Broker   Broker
	Dialogs  DialogFactory
	Platform Platform
}
