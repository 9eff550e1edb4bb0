//go:build !tinygo

// Package watch republishes a host config file whenever it changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"devicelink-go/bus"
	"devicelink-go/services/config"
)

// Watcher follows one file. The parent directory is watched so editors that
// replace the file instead of writing it in place are still seen.
type Watcher struct {
	path    string
	conn    *bus.Connection
	log     logrus.FieldLogger
	watcher *fsnotify.Watcher
}

func New(path string, conn *bus.Connection, log logrus.FieldLogger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{
		path:    abs,
		conn:    conn,
		log:     log.WithField("file", abs),
		watcher: fw,
	}, nil
}

// Reload parses the file and publishes its sections.
func (w *Watcher) Reload() error {
	sections, err := config.LoadFile(w.path)
	if err != nil {
		return err
	}
	config.Publish(w.conn, sections)
	return nil
}

// Run handles file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := w.Reload(); err != nil {
				w.log.WithError(err).Warn("config reload failed; keeping previous values")
				continue
			}
			w.log.Info("config reloaded")
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("file watcher error")
		}
	}
}
