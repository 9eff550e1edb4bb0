package types

// Payloads carried on "config/wlan" and "config/log".

type WLANConfig struct {
	SSID             string `yaml:"ssid"`
	Password         string `yaml:"password"`
	Country          string `yaml:"country"`
	PollIntervalMs   int    `yaml:"poll_interval_ms"`
	ConnectTimeoutMs int    `yaml:"connect_timeout_ms"`
	LogPort          uint16 `yaml:"log_port"`
}

type LogConfig struct {
	// Default applies to every subsystem not listed in Levels.
	Default string            `yaml:"default"`
	Levels  map[string]string `yaml:"levels"`
}

type SNTPConfig struct {
	Server string `yaml:"server"`
}
