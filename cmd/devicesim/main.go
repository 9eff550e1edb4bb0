//go:build !tinygo

// Command devicesim runs the connectivity supervisor and log relay on a
// host against a simulated radio.
//
// Usage:
//
//	devicesim --env .env --config sim.yaml --metrics :9101
//	devicesim --fault-after 20s --log-host 127.0.0.1
package main

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	device      string
	configFile  string
	envFile     string
	logHost     string
	metrics     string
	deferRelay  bool
	failRate    float64
	joinDelay   time.Duration
	dropAfter   time.Duration
	faultAfter  time.Duration
	duration    time.Duration
	verboseHost bool
}

func newRootCmd() *cobra.Command {
	o := options{}
	cmd := &cobra.Command{
		Use:           "devicesim",
		Short:         "Run the link supervisor and log relay against a simulated radio",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.verboseHost {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return run(cmd.Context(), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.device, "device", "sim", "embedded device config to publish")
	f.StringVar(&o.configFile, "config", "", "YAML config file published over the embedded one and watched for changes")
	f.StringVar(&o.envFile, "env", ".env", "dotenv file with WLAN_SSID, WLAN_PASSWORD, LOG_HOST, LOG_PORT")
	f.StringVar(&o.logHost, "log-host", "127.0.0.1", "destination of relayed log datagrams")
	f.StringVar(&o.metrics, "metrics", "", "serve Prometheus metrics on this address")
	f.BoolVar(&o.deferRelay, "defer-relay", true, "relay records from a queue outside the buffer lock")
	f.Float64Var(&o.failRate, "fail-rate", -1, "override the simulated join failure probability")
	f.DurationVar(&o.joinDelay, "join-delay", -1, "override the simulated join time")
	f.DurationVar(&o.dropAfter, "drop-after", -1, "override how long a simulated link stays up")
	f.DurationVar(&o.faultAfter, "fault-after", 0, "inject an out-of-range radio status after this long")
	f.DurationVar(&o.duration, "duration", 0, "stop after this long; 0 runs until interrupted")
	f.BoolVarP(&o.verboseHost, "verbose", "v", false, "debug logging for the simulator itself")
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("devicesim failed")
		os.Exit(1)
	}
}
