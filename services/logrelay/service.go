package logrelay

import (
	"context"

	"devicelink-go/bus"
	"devicelink-go/types"
)

var topicConfigLog = bus.T("config", "log")

// Service applies "config/log" payloads to a relay's severity table.
type Service struct {
	r   *Relay
	log *Logger
}

func NewService(r *Relay) *Service {
	return &Service{r: r, log: r.Logger(types.SubsystemMain).In("service.go")}
}

// Apply sets the default level on every subsystem, then the per-subsystem
// overrides. Unknown names are reported and skipped; it returns the number of
// entries that could not be applied.
func (s *Service) Apply(cfg types.LogConfig) int {
	bad := 0
	if cfg.Default != "" {
		lvl, ok := types.ParseLevel(cfg.Default)
		if ok {
			for sub := types.Subsystem(0); sub < types.NumSubsystems; sub++ {
				s.r.SetSeverity(sub, lvl)
			}
		} else {
			s.log.At("Apply", 34).Warnf("log: unknown default level %q", cfg.Default)
			bad++
		}
	}
	for name, lvlName := range cfg.Levels {
		sub, ok := types.ParseSubsystem(name)
		if !ok {
			s.log.At("Apply", 41).Warnf("log: unknown subsystem %q", name)
			bad++
			continue
		}
		lvl, ok := types.ParseLevel(lvlName)
		if !ok {
			s.log.At("Apply", 47).Warnf("log: unknown level %q for %s", lvlName, name)
			bad++
			continue
		}
		s.r.SetSeverity(sub, lvl)
	}
	return bad
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection) {
	sub := conn.Subscribe(topicConfigLog)
	defer conn.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			switch cfg := msg.Payload.(type) {
			case types.LogConfig:
				s.Apply(cfg)
			case *types.LogConfig:
				if cfg != nil {
					s.Apply(*cfg)
				}
			default:
				s.log.At("serviceLoop", 76).Warnf("log: ignoring non-log payload on %s", msg.Topic.String())
			}
		}
	}
}

// Start runs the config listener until ctx is done.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	go s.serviceLoop(ctx, conn)
	return nil
}
