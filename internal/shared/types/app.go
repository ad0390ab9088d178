package types

// Status represents application lifecycle states
type Status int

const (
	StatusInactive Status = iota
	StatusStarting
	StatusRunning
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	default:
		return "unknown"
	}
}

// AppRecord is an immutable catalog entry built at registry initialization
type AppRecord struct {
	ID       string
	Name     string
	IconPath string // empty when no icon was found
	Unit     string // backing unit name, e.g. agl-app@radio.service
}

// Info projects the record to its externally visible fields
func (r AppRecord) Info() AppInfo {
	return AppInfo{
		ID:       r.ID,
		Name:     r.Name,
		IconPath: r.IconPath,
	}
}

// AppInfo is the externally visible part of an application
type AppInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IconPath string `json:"icon_path"`
}

// UnitFile is a unit file entry returned by supervisor enumeration
type UnitFile struct {
	Path  string
	State string
}

// Stats contains launcher statistics
type Stats struct {
	RegisteredApps int  `json:"registered_apps"`
	Subscribers    int  `json:"subscribers"`
	Supervisor     bool `json:"supervisor_connected"`
}
