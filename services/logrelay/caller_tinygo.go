//go:build tinygo

package logrelay

// TinyGo's runtime.Caller always fails; records without an explicit Site
// carry the logger's file scope only.
func callerLocation(int) (Location, bool) { return Location{}, false }
