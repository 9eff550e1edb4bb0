package wlan

import (
	"time"

	"devicelink-go/errcode"
	"devicelink-go/types"
)

// Fallbacks used when a device config leaves a field empty.
const (
	DefaultSSID           = "Dark Helmet"
	DefaultPassword       = "123456"
	DefaultCountry        = "DE"
	DefaultPollInterval   = 2 * time.Second
	DefaultConnectTimeout = 30 * time.Second
	DefaultLogPort        = 54323
)

type Config struct {
	SSID           string
	Password       string
	Auth           types.AuthKind
	Country        string
	PollInterval   time.Duration
	ConnectTimeout time.Duration
	LogPort        uint16
}

// ConfigFrom fills a Config from a "config/wlan" payload, applying the
// fallbacks for anything unset.
func ConfigFrom(c types.WLANConfig) Config {
	cfg := Config{
		SSID:           c.SSID,
		Password:       c.Password,
		Auth:           types.AuthWPA2AESPSK,
		Country:        c.Country,
		PollInterval:   time.Duration(c.PollIntervalMs) * time.Millisecond,
		ConnectTimeout: time.Duration(c.ConnectTimeoutMs) * time.Millisecond,
		LogPort:        c.LogPort,
	}
	if cfg.SSID == "" {
		cfg.SSID, cfg.Password = DefaultSSID, DefaultPassword
	}
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.LogPort == 0 {
		cfg.LogPort = DefaultLogPort
	}
	return cfg
}

func (c Config) validate() error {
	const op = "wlan.Config"
	switch {
	case c.SSID == "":
		return errcode.New(errcode.InvalidConfig, op, "empty ssid")
	case c.PollInterval <= 0:
		return errcode.New(errcode.InvalidConfig, op, "poll interval must be positive")
	case c.ConnectTimeout <= 0:
		return errcode.New(errcode.InvalidConfig, op, "connect timeout must be positive")
	}
	return nil
}
