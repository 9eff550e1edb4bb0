//go:build !tinygo

package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// env holds settings that may come from the environment or a .env file.
type env struct {
	SSID     string
	Password string
	LogHost  string
	LogPort  int
}

func loadEnv(path string) (env, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return env{}, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	e := env{
		SSID:     os.Getenv("WLAN_SSID"),
		Password: os.Getenv("WLAN_PASSWORD"),
		LogHost:  os.Getenv("LOG_HOST"),
	}
	if p := os.Getenv("LOG_PORT"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 0xFFFF {
			return env{}, fmt.Errorf("LOG_PORT %q is not a port", p)
		}
		e.LogPort = n
	}
	return e, nil
}
