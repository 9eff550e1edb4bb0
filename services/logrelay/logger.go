package logrelay

import (
	"devicelink-go/types"
)

// Logger is a per-subsystem front end to a Relay. It fills in the call site
// and core id so callers only supply the message.
type Logger struct {
	r    *Relay
	sub  types.Subsystem
	file string // set by In
}

func (r *Relay) Logger(sub types.Subsystem) *Logger { return &Logger{r: r, sub: sub} }

// In returns a copy of l whose records name file as their source. Code that
// runs on the device scopes its logger once and then uses At per record.
func (l *Logger) In(file string) *Logger {
	c := *l
	c.file = file
	return &c
}

// At pins the function and line of one record. TinyGo cannot walk the
// stack, so the firmware path names its own call site the way a C logging
// macro would.
func (l *Logger) At(fn string, line int) Site {
	return Site{l: l, loc: Location{File: l.fileName(), Func: fn, Line: line}}
}

func (l *Logger) fileName() string {
	if l.file == "" {
		return "?"
	}
	return l.file
}

func (l *Logger) Errorf(format string, args ...any) { l.emit(types.LevelError, format, args) }
func (l *Logger) Warnf(format string, args ...any)  { l.emit(types.LevelWarning, format, args) }
func (l *Logger) Infof(format string, args ...any)  { l.emit(types.LevelInfo, format, args) }
func (l *Logger) Debugf(format string, args ...any) { l.emit(types.LevelDebug, format, args) }

func (l *Logger) emit(lvl types.Level, format string, args []any) {
	// Skip the caller lookup for gated lines.
	if !l.r.Enabled(l.sub, lvl) {
		l.r.gated.Add(1)
		return
	}
	loc, ok := callerLocation(3)
	if !ok {
		loc = Location{File: l.fileName(), Func: "?"}
	}
	l.emitAt(lvl, loc, format, args)
}

func (l *Logger) emitAt(lvl types.Level, loc Location, format string, args []any) {
	var core uint8
	if l.r.opts.CoreID != nil {
		core = l.r.opts.CoreID()
	}
	l.r.Emit(l.sub, lvl, loc, core, format, args...)
}

// Site is a Logger bound to an explicit call site.
type Site struct {
	l   *Logger
	loc Location
}

func (s Site) Errorf(format string, args ...any) { s.l.emitAt(types.LevelError, s.loc, format, args) }
func (s Site) Warnf(format string, args ...any)  { s.l.emitAt(types.LevelWarning, s.loc, format, args) }
func (s Site) Infof(format string, args ...any)  { s.l.emitAt(types.LevelInfo, s.loc, format, args) }
func (s Site) Debugf(format string, args ...any) { s.l.emitAt(types.LevelDebug, s.loc, format, args) }

func base(s string, sep byte) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == sep {
			return s[i+1:]
		}
	}
	return s
}
