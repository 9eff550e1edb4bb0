package config

import "embed"

// Per-device configs, keyed by file name without extension. The key is the
// device ID placed in the context under CtxDeviceKey.
//
//go:embed configs/*.yaml
var embedded embed.FS

func embeddedConfig(device string) ([]byte, bool) {
	b, err := embedded.ReadFile("configs/" + device + ".yaml")
	if err != nil {
		return nil, false
	}
	return b, true
}
