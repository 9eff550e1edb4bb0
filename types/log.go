package types

// ---- Subsystems ----

// Subsystem is a coarse source area used to gate log verbosity independently.
type Subsystem uint8

const (
	SubsystemUnknown Subsystem = iota
	SubsystemMain
	SubsystemWLAN
	SubsystemSNTP
	SubsystemTransport
	SubsystemApp
	NumSubsystems // number of entries, not a subsystem
)

var subsystemNames = [NumSubsystems]string{
	SubsystemUnknown:   "unknown",
	SubsystemMain:      "main",
	SubsystemWLAN:      "wlan",
	SubsystemSNTP:      "sntp",
	SubsystemTransport: "transport",
	SubsystemApp:       "app",
}

func (s Subsystem) String() string {
	if s < NumSubsystems {
		return subsystemNames[s]
	}
	return "invalid"
}

// ParseSubsystem maps a config key back to its Subsystem.
func ParseSubsystem(name string) (Subsystem, bool) {
	for i, n := range subsystemNames {
		if n == name {
			return Subsystem(i), true
		}
	}
	return 0, false
}

// ---- Severity levels ----

// Level is the urgency of a log line. Lower value = more urgent.
// A subsystem threshold is an inclusive ceiling: a line is emitted when
// its level is <= the threshold. LevelOff as a threshold silences a subsystem.
type Level uint8

const (
	LevelOff Level = iota // threshold only; never a valid line level
	LevelError
	LevelWarning
	LevelInfo
	LevelDebug
	NumLevels // number of entries, not a level
)

const LevelAll = LevelDebug

var levelNames = [NumLevels]string{
	LevelOff:     "off",
	LevelError:   "error",
	LevelWarning: "warning",
	LevelInfo:    "info",
	LevelDebug:   "debug",
}

func (l Level) String() string {
	if l < NumLevels {
		return levelNames[l]
	}
	return "invalid"
}

// ParseLevel accepts the level names plus the short aliases used in configs.
func ParseLevel(name string) (Level, bool) {
	switch name {
	case "warn":
		return LevelWarning, true
	case "dbg", "all":
		return LevelDebug, true
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), true
		}
	}
	return 0, false
}
