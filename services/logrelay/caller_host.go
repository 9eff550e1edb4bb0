//go:build !tinygo

package logrelay

import "runtime"

// callerLocation reports the frame skip levels above it, as runtime.Caller.
func callerLocation(skip int) (Location, bool) {
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return Location{}, false
	}
	loc := Location{File: base(file, '/'), Func: "?", Line: line}
	if fn := runtime.FuncForPC(pc); fn != nil {
		loc.Func = base(fn.Name(), '.')
	}
	return loc, true
}
