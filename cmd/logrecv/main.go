//go:build !tinygo

// Command logrecv listens for relayed device log datagrams and writes them
// as JSON lines, to stdout or a rotated file.
//
// Usage:
//
//	logrecv --listen :54323
//	logrecv --file /var/log/devicelink/devices.log --max-size 20
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"devicelink-go/services/logrecv"
)

func newRootCmd() *cobra.Command {
	var (
		listen  string
		envFile string
		file    logrecv.FileOptions
	)
	cmd := &cobra.Command{
		Use:           "logrecv",
		Short:         "Receive relayed device logs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
				return err
			}
			// Environment fills flags the user did not set.
			if v := os.Getenv("LOGRECV_LISTEN"); v != "" && !cmd.Flags().Changed("listen") {
				listen = v
			}
			if v := os.Getenv("LOGRECV_FILE"); v != "" && !cmd.Flags().Changed("file") {
				file.Path = v
			}
			if v := os.Getenv("LOGRECV_MAX_SIZE_MB"); v != "" && !cmd.Flags().Changed("max-size") {
				if n, err := strconv.Atoi(v); err == nil {
					file.MaxSizeMB = n
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out, closer := logrecv.NewLogger(file)
			defer closer.Close()

			rcv, err := logrecv.Listen(listen, out)
			if err != nil {
				return err
			}
			logrus.WithField("addr", rcv.Addr().String()).WithField("file", file.Path).Info("logrecv listening")
			err = rcv.Run(ctx)
			st := rcv.Stats()
			logrus.WithFields(logrus.Fields{"received": st.Received, "malformed": st.Malformed}).Info("logrecv stopped")
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&listen, "listen", ":54323", "UDP address to listen on")
	f.StringVar(&envFile, "env", ".env", "dotenv file with LOGRECV_* settings")
	f.StringVar(&file.Path, "file", "", "write to this file with rotation instead of stdout")
	f.IntVar(&file.MaxSizeMB, "max-size", 10, "rotate after this many megabytes")
	f.IntVar(&file.MaxBackups, "max-backups", 5, "rotated files to keep")
	f.IntVar(&file.MaxAgeDays, "max-age", 30, "days to keep rotated files")
	f.BoolVar(&file.Compress, "compress", true, "gzip rotated files")
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		logrus.WithError(err).Error("logrecv failed")
		os.Exit(1)
	}
}
