package config

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"

	"devicelink-go/bus"
	"devicelink-go/errcode"
	"devicelink-go/types"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key used for device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = embeddedConfig

// Known sections decode into their typed payloads; anything else is
// published as generic YAML values.
var decoders = map[string]func(*yaml.Node) (any, error){
	"wlan": func(n *yaml.Node) (any, error) { var v types.WLANConfig; err := n.Decode(&v); return v, err },
	"log":  func(n *yaml.Node) (any, error) { var v types.LogConfig; err := n.Decode(&v); return v, err },
	"sntp": func(n *yaml.Node) (any, error) { var v types.SNTPConfig; err := n.Decode(&v); return v, err },
}

// Parse decodes a device config into one payload per top-level key.
func Parse(raw []byte) (map[string]any, error) {
	const op = "config.Parse"
	var sections map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &sections); err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, op, err)
	}
	if sections == nil {
		return nil, errcode.New(errcode.InvalidConfig, op, "config is not a mapping")
	}
	out := make(map[string]any, len(sections))
	for k, node := range sections {
		n := node
		dec, ok := decoders[k]
		if !ok {
			dec = func(n *yaml.Node) (any, error) { var v any; err := n.Decode(&v); return v, err }
		}
		v, err := dec(&n)
		if err != nil {
			return nil, errcode.Wrap(errcode.InvalidConfig, op+"."+k, err)
		}
		out[k] = v
	}
	return out, nil
}

// LoadFile reads and parses a config file from disk.
func LoadFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidConfig, "config.LoadFile", err)
	}
	return Parse(raw)
}

// Publish puts every section on "config/<key>" as a retained message.
func Publish(conn *bus.Connection, sections map[string]any) {
	for k, v := range sections {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig reads the device config from embedded data and publishes it as retained messages.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	const op = "config.publish"
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errcode.New(errcode.InvalidConfig, op, "missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errcode.New(errcode.InvalidConfig, op, "no embedded config for device: "+device)
	}

	sections, err := Parse(raw)
	if err != nil {
		return err
	}
	Publish(conn, sections)
	return nil
}

// Start publishes the device config. Sections are retained, so services
// started later still receive them.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) error {
	return s.publishConfig(ctx, conn)
}

// Lookup returns the retained value of one section, if any was published.
func Lookup[T any](conn *bus.Connection, key string) (T, bool) {
	var zero T
	sub := conn.Subscribe(bus.T(configPrefix, key))
	defer conn.Unsubscribe(sub)
	select {
	case msg, ok := <-sub.Channel():
		if !ok {
			return zero, false
		}
		v, ok := msg.Payload.(T)
		return v, ok
	default:
		return zero, false
	}
}
