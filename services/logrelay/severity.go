package logrelay

import (
	"sync/atomic"

	"devicelink-go/types"
	"devicelink-go/x/mathx"
)

// SeverityTable holds one threshold per subsystem. Reads are single atomic
// loads so the gate never takes a lock; writes go through Set only.
type SeverityTable struct {
	lv [types.NumSubsystems]atomic.Int32
}

// NewSeverityTable returns a table with every subsystem at def. An invalid
// def falls back to LevelInfo.
func NewSeverityTable(def types.Level) *SeverityTable {
	t := &SeverityTable{}
	if !validLevel(def) {
		def = types.LevelInfo
	}
	for i := range t.lv {
		t.lv[i].Store(int32(def))
	}
	return t
}

func validSubsystem(s types.Subsystem) bool {
	return mathx.Between(int(s), 0, int(types.NumSubsystems)-1)
}

func validLevel(l types.Level) bool {
	return mathx.Between(int(l), int(types.LevelOff), int(types.NumLevels)-1)
}

// Set assigns lvl to sub. Out of range identifiers leave the table unchanged
// and report false.
func (t *SeverityTable) Set(sub types.Subsystem, lvl types.Level) bool {
	if !validSubsystem(sub) || !validLevel(lvl) {
		return false
	}
	t.lv[sub].Store(int32(lvl))
	return true
}

// Get returns the threshold of sub. Unknown subsystems read the
// SubsystemUnknown entry.
func (t *SeverityTable) Get(sub types.Subsystem) types.Level {
	if !validSubsystem(sub) {
		sub = types.SubsystemUnknown
	}
	return types.Level(t.lv[sub].Load())
}

// Allows reports whether a line at lvl from sub passes the gate.
// The threshold is an inclusive ceiling; LevelOff is never a line level.
func (t *SeverityTable) Allows(sub types.Subsystem, lvl types.Level) bool {
	if lvl == types.LevelOff || lvl >= types.NumLevels {
		return false
	}
	return lvl <= t.Get(sub)
}

// Snapshot copies the current thresholds.
func (t *SeverityTable) Snapshot() [types.NumSubsystems]types.Level {
	var out [types.NumSubsystems]types.Level
	for i := range t.lv {
		out[i] = types.Level(t.lv[i].Load())
	}
	return out
}
